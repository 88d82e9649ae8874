package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/pterm/pterm"

	"github.com/hitoshi/pequemaths/internal/admin"
	"github.com/hitoshi/pequemaths/internal/admincli"
	"github.com/hitoshi/pequemaths/internal/identity"
	"github.com/hitoshi/pequemaths/internal/logger"
)

func main() {
	log := logger.SetupWithLevel(os.Stderr, slog.LevelWarn)

	root := admincli.NewRootCommand(func(ctx context.Context, creds admincli.Credentials) (admincli.UserAdmin, error) {
		platform, err := identity.NewFirebasePlatform(ctx, identity.FirebaseConfig{
			ProjectID:   creds.ProjectID,
			ClientEmail: creds.ClientEmail,
			PrivateKey:  creds.PrivateKey,
		}, nil, log)
		if err != nil {
			return nil, err
		}
		return admin.NewService(platform, nil, log), nil
	})

	if err := root.ExecuteContext(context.Background()); err != nil {
		pterm.Error.Println(err)
		os.Exit(1)
	}
}
