//go:build !sitterfeed_debug

package source

const debugAssertions = false
