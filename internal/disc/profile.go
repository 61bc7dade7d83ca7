package disc

import (
	"bytes"
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"text/template"

	"spatialrip/internal/language"
)

// ProfileFileName is the rip profile written into the work directory.
const ProfileFileName = "custom_profile.mmcp.xml"

//go:embed templates/custom_profile.mmcp.xml.tmpl
var profileTemplateText string

var profileTemplate = template.Must(template.New("profile").Parse(profileTemplateText))

// Selection returns MakeMKV's track selection rule for lang. With
// removeExtra set only the video tracks and lang are kept.
func Selection(lang string, removeExtra bool) string {
	rules := []string{"+sel:all", "+sel:video", "+sel:mvcvideo", fmt.Sprintf("+sel:(%s)", language.ToISO3(lang))}
	if removeExtra {
		rules[0] = "-sel:all"
	}
	return strings.Join(rules, ",")
}

// RenderProfile produces the rip profile document.
func RenderProfile(lang string, removeExtra bool) (string, error) {
	var buf bytes.Buffer
	err := profileTemplate.Execute(&buf, struct {
		Language  string
		Selection string
	}{
		Language:  language.DisplayName(lang),
		Selection: Selection(lang, removeExtra),
	})
	if err != nil {
		return "", fmt.Errorf("render rip profile: %w", err)
	}
	return buf.String(), nil
}

// WriteProfile renders the profile into dir and returns its path.
func WriteProfile(dir, lang string, removeExtra bool) (string, error) {
	content, err := RenderProfile(lang, removeExtra)
	if err != nil {
		return "", err
	}
	path := filepath.Join(dir, ProfileFileName)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return "", fmt.Errorf("write rip profile: %w", err)
	}
	return path, nil
}
