package link

// Config holds the handful of tunables the link pipeline needs. There is
// deliberately no file or environment-variable backed configuration layer
// (spec.md §6): Config is always built directly from parsed CLI flags.
type Config struct {
	// ImageBase is the virtual address of the first loadable chunk.
	ImageBase uint64
	// OutputPath is where the final executable is written.
	OutputPath string
}

// PageSize is the page alignment used for loadable segments (spec.md §4.5).
const PageSize = 0x1000

// DefaultImageBase is the default base virtual address (spec.md §6).
const DefaultImageBase = 0x400000

// DefaultOutputPath is the fixed output file name absent an override.
const DefaultOutputPath = "a.out"

// NewConfig returns the default Config.
func NewConfig() *Config {
	return &Config{
		ImageBase:  DefaultImageBase,
		OutputPath: DefaultOutputPath,
	}
}
