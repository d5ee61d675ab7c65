package database

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"

	"github.com/jask/vareditor/internal/database/repository"
)

// DefaultPanelSettings is written under the panel's settings key when the
// document has none.
var DefaultPanelSettings = map[string]any{
	"isShown":  false,
	"fontSize": 1.0,
}

// SeedDefaults ensures the settings document carries an (empty) global
// variable object and the panel defaults. It is idempotent and safe to run
// on every startup; existing values are never overwritten.
func SeedDefaults(ctx context.Context, db *sql.DB) error {
	repo := repository.NewSettingsRepo(db)
	doc, err := repo.Load(ctx, repository.SettingsNamespace)
	if err != nil {
		return fmt.Errorf("load settings: %w", err)
	}
	orig := string(doc)
	if !gjson.GetBytes(doc, repository.GlobalVariablesPath).IsObject() {
		if doc, err = sjson.SetRawBytes(doc, repository.GlobalVariablesPath, []byte("{}")); err != nil {
			return err
		}
	}
	for key, def := range DefaultPanelSettings {
		path := repository.PanelSettingsPath + "." + key
		if gjson.GetBytes(doc, path).Exists() {
			continue
		}
		if doc, err = sjson.SetBytes(doc, path, def); err != nil {
			return err
		}
	}
	exists, err := repo.Exists(ctx, repository.SettingsNamespace)
	if err != nil {
		return err
	}
	if exists && string(doc) == orig {
		return nil
	}
	return repo.Save(ctx, repository.SettingsNamespace, doc)
}
