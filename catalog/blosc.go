package catalog

// bloscConfig holds the tunables encoded into the Blosc cd_values block.
type bloscConfig struct {
	level      int
	shuffle    bool
	compressor BloscCompressor
}

// BloscOption customizes the parameters built by BloscOptions.
type BloscOption func(*bloscConfig)

// WithLevel sets the compression level (0-9). Default 4.
func WithLevel(level int) BloscOption {
	return func(c *bloscConfig) { c.level = level }
}

// WithShuffle enables byte shuffling. Default off.
func WithShuffle(shuffle bool) BloscOption {
	return func(c *bloscConfig) { c.shuffle = shuffle }
}

// WithCompressor selects the inner codec. Default BloscLZ.
func WithCompressor(compressor BloscCompressor) BloscOption {
	return func(c *bloscConfig) { c.compressor = compressor }
}

// BloscOptions returns the seven-slot parameter block expected by the
// hdf5-blosc plugin. The first four slots are filled in by the plugin
// itself and are always zero here; the last three are level, shuffle
// (0 or 1) and compressor.
func BloscOptions(opts ...BloscOption) []uint {
	cfg := bloscConfig{level: 4, compressor: BloscLZ}
	for _, opt := range opts {
		opt(&cfg)
	}

	var shuffle uint
	if cfg.shuffle {
		shuffle = 1
	}

	return []uint{
		0, 0, 0, 0,
		uint(cfg.level), shuffle, uint(cfg.compressor),
	}
}
