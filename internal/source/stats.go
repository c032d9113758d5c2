package source

// Stats counts what a provider did during its session.
type Stats struct {
	Calls      int
	Releases   int
	EOFs       int
	Failures   int
	Violations int
}
