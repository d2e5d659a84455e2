package types

// Service is a named group of executable tool methods the toolset executor
// dispatches to.  Each method doubles as an advertised capability.
type Service interface {
	Name() string
	Methods() Signatures
	Method(name string) (Executable, error)
}
