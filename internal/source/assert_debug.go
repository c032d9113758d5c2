//go:build sitterfeed_debug

package source

const debugAssertions = true
