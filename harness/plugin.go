package harness

import (
	"context"
	"log/slog"
	"os"

	"github.com/weiihann/h5bench/catalog"
)

// DefaultPluginDir is where libhdf5 looks for filter plugins when
// HDF5_PLUGIN_PATH is unset.
const DefaultPluginDir = "/usr/local/hdf5/lib/plugin"

// ResolvePluginDir returns the plugin directory to report and, if
// explicit, register: the flag value, else HDF5_PLUGIN_PATH, else the
// library default. The second result is true only for the flag value,
// since libhdf5 already honours the other two.
func ResolvePluginDir(flagDir string) (string, bool) {
	if flagDir != "" {
		return flagDir, true
	}

	if env := os.Getenv("HDF5_PLUGIN_PATH"); env != "" {
		return env, false
	}

	return DefaultPluginDir, false
}

// CheckFilters logs whether each configuration's codec can be loaded and
// returns the labels of those that cannot. Nothing is skipped: an
// unavailable codec still fails when its run starts.
func CheckFilters(
	ctx context.Context,
	logger *slog.Logger,
	filters []catalog.Filter,
) []string {
	var missing []string

	for _, f := range filters {
		if FilterAvailable(f.Code) {
			logger.DebugContext(ctx, "filter available",
				slog.String("label", f.Label),
				slog.String("filter", f.Code.String()),
			)

			continue
		}

		logger.WarnContext(ctx, "filter not available",
			slog.String("label", f.Label),
			slog.String("filter", f.Code.String()),
			slog.Int("id", int(f.Code)),
		)

		missing = append(missing, f.Label)
	}

	return missing
}
