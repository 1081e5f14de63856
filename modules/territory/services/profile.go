package services

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// ImportProfile carries the metadata of the document being imported.
type ImportProfile struct {
	DocumentName    string `yaml:"document_name" json:"document_name" validate:"required,max=200"`
	DocumentDate    string `yaml:"document_date" json:"document_date,omitempty" validate:"omitempty,day_first_date"`
	DocumentDateISO string `yaml:"document_date_iso" json:"document_date_iso,omitempty" validate:"omitempty,datetime=2006-01-02"`
	ImportVersion   string `yaml:"import_version" json:"import_version,omitempty" validate:"omitempty,max=64"`
	Description     string `yaml:"description" json:"description,omitempty" validate:"max=1000"`
}

var ErrInvalidProfile = errors.New("invalid import profile")

var profileValidate = newProfileValidator()

func newProfileValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	_ = v.RegisterValidation("day_first_date", func(fl validator.FieldLevel) bool {
		_, ok := ParseDate(fl.Field().String())
		return ok
	})
	return v
}

// LoadProfile reads a YAML import profile.
func LoadProfile(path string) (ImportProfile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return ImportProfile{}, errors.Wrap(err, "read profile")
	}
	var p ImportProfile
	if err := yaml.Unmarshal(data, &p); err != nil {
		return ImportProfile{}, errors.Wrapf(err, "decode profile %s", path)
	}
	return p, nil
}

// DefaultProfile names the document after its file.
func DefaultProfile(documentPath string) ImportProfile {
	base := filepath.Base(documentPath)
	return ImportProfile{DocumentName: strings.TrimSuffix(base, filepath.Ext(base))}
}

// Normalize trims fields and fills whichever of the two document dates is
// missing from the other.
func (p *ImportProfile) Normalize() {
	p.DocumentName = strings.TrimSpace(p.DocumentName)
	p.DocumentDate = strings.TrimSpace(p.DocumentDate)
	p.DocumentDateISO = strings.TrimSpace(p.DocumentDateISO)
	p.ImportVersion = strings.TrimSpace(p.ImportVersion)
	p.Description = strings.TrimSpace(p.Description)

	if p.DocumentDateISO == "" && p.DocumentDate != "" {
		if t, ok := ParseDate(p.DocumentDate); ok {
			p.DocumentDateISO = t.Format(time.DateOnly)
		}
	}
	if p.DocumentDate == "" && p.DocumentDateISO != "" {
		if t, err := time.Parse(time.DateOnly, p.DocumentDateISO); err == nil {
			p.DocumentDate = t.Format("02.01.2006")
		}
	}
}

// Ok normalizes and validates the profile, returning field messages on failure.
func (p *ImportProfile) Ok() (map[string]string, bool) {
	p.Normalize()
	err := profileValidate.Struct(p)
	if err == nil {
		return map[string]string{}, true
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return map[string]string{"profile": err.Error()}, false
	}
	out := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		out[fe.Field()] = fmt.Sprintf("failed %q", fe.Tag())
	}
	return out, false
}

// ValidationError flattens Ok's messages into one error.
func (p *ImportProfile) ValidationError() error {
	msgs, ok := p.Ok()
	if ok {
		return nil
	}
	parts := make([]string, 0, len(msgs))
	for field, msg := range msgs {
		parts = append(parts, field+": "+msg)
	}
	sort.Strings(parts)
	return fmt.Errorf("%w: %s", ErrInvalidProfile, strings.Join(parts, "; "))
}
