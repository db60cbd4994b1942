package cli

import (
	"fmt"
	"log/slog"
	"net/http"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/DukeRupert/notegenie/internal"
	"github.com/DukeRupert/notegenie/internal/localstore"
	"github.com/DukeRupert/notegenie/internal/localstore/sqlite"
	"github.com/DukeRupert/notegenie/internal/uploader"
)

const sqliteCacheFile = "cache.db"

type app struct {
	v          *viper.Viper
	settings   Settings
	logger     *slog.Logger
	creds      *credentialsFile
	store      localstore.Store
	closeStore func() error
	prober     uploader.Prober
	transcoder uploader.Transcoder
	httpClient *http.Client
	now        func() time.Time
}

func newApp(v *viper.Viper) *app {
	return &app{
		v:          v,
		httpClient: http.DefaultClient,
		now:        time.Now,
	}
}

// load resolves settings and opens the local cache. It runs before every
// command.
func (a *app) load(cmd *cobra.Command) error {
	configDir, err := defaultConfigDir()
	if err != nil {
		return err
	}

	settings, err := loadSettings(a.v, configDir)
	if err != nil {
		return err
	}
	a.settings = settings
	a.logger = internal.NewLogger(cmd.ErrOrStderr(), "development", settings.LogLevel)
	a.creds = newCredentialsFile(configDir)

	if err := a.openStore(); err != nil {
		return err
	}

	if a.prober == nil {
		a.prober = uploader.FFProbe{Path: settings.FFprobePath}
	}
	if a.transcoder == nil {
		a.transcoder = uploader.FFmpeg{Path: settings.FFmpegPath}
	}

	a.logger.Debug("client configured",
		"server_url", settings.ServerURL,
		"cache_backend", settings.CacheBackend,
		"config_dir", configDir,
	)
	return nil
}

func (a *app) openStore() error {
	switch a.settings.CacheBackend {
	case cacheBackendSQLite:
		store, err := sqlite.Open(filepath.Join(a.settings.CacheDir, sqliteCacheFile))
		if err != nil {
			return fmt.Errorf("open sqlite cache: %w", err)
		}
		a.store = store
		a.closeStore = store.Close
	default:
		a.store = localstore.NewFileStore(a.settings.CacheDir)
		a.closeStore = nil
	}
	return nil
}

func (a *app) close() error {
	if a.closeStore == nil {
		return nil
	}
	err := a.closeStore()
	a.closeStore = nil
	return err
}

// session returns the saved credentials or errNotSignedIn.
func (a *app) session() (*credentials, error) {
	return a.creds.load(a.now())
}

func (a *app) client(token string) *uploader.Client {
	return uploader.NewClient(a.settings.ServerURL, token, a.httpClient)
}

func (a *app) cache() *uploader.Cache {
	return uploader.NewCache(a.store, a.logger)
}
