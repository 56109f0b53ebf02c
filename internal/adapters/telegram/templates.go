package telegram

import (
	"embed"

	"teamy/pkg/errors"
	"teamy/pkg/telegram"
)

//go:embed templates
var templatesFS embed.FS

// Template names
const (
	tmplStartPrivate  = "start/private"
	tmplStartGroup    = "start/group"
	tmplStub          = "stub"
	tmplError         = "error"
	tmplAccessDenied  = "admin/denied"
	tmplExportCaption = "admin/export_caption"
	tmplCleared       = "admin/cleared"
	tmplAdminFailed   = "admin/failed"
)

// NewTemplates loads the bot's embedded reply templates
func NewTemplates() (*telegram.TemplateRegistry, error) {
	registry, err := telegram.NewSubTemplateRegistry(templatesFS, "templates")
	if err != nil {
		return nil, errors.Wrap(err, "failed to load telegram templates")
	}

	for _, name := range []string{
		tmplStartPrivate, tmplStartGroup, tmplStub, tmplError,
		tmplAccessDenied, tmplExportCaption, tmplCleared, tmplAdminFailed,
	} {
		if !registry.Exists(name) {
			return nil, errors.Wrapf(errors.ErrMissingConfig, "template %s is missing", name)
		}
	}

	return registry, nil
}
