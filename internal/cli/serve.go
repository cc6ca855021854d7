package cli

import (
	"github.com/mrlokans/librarian/internal/config"
	"github.com/mrlokans/librarian/internal/entrypoint"
)

var runServer = func(cfg *config.Config, version string) error {
	return entrypoint.Run(cfg, version)
}
