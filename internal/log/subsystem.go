package log

// Subsystem returns a logger tagged with the subsystem name so every line it
// writes carries the tag spec.md's error-reporting policy requires
// ("analyzer", "doc", "arch", "os", ...).
func Subsystem(name string) *Logger {
	return DefaultLogger().With(String("subsystem", name))
}
