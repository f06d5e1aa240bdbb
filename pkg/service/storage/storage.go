package storage

import (
	"path/filepath"
	"regexp"
	"strings"

	"github.com/secmon-lab/riskdesk/pkg/domain/model"
)

var unsafeNameChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// objectName returns the object path of a risk document
func objectName(prefix string, riskID model.RiskID, fileName string) string {
	base := filepath.Base(strings.ReplaceAll(fileName, `\`, "/"))
	base = unsafeNameChars.ReplaceAllString(base, "_")
	base = strings.Trim(base, "._")
	if base == "" {
		base = "document"
	}
	return prefix + "risks/" + riskID.String() + "/" + base
}
