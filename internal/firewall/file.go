package firewall

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/vyrodovalexey/edgegate/internal/util"
)

// fileDescriptor is one entry of an allow-list file.
type fileDescriptor struct {
	Type  string `yaml:"type" toml:"type"`
	Value string `yaml:"value" toml:"value"`
}

// allowListFile is the document shape shared by the YAML and TOML forms.
type allowListFile struct {
	Entries []fileDescriptor `yaml:"entries" toml:"entries"`
}

// LoadAllowListFile reads allow-list entries from a YAML (.yaml, .yml) or
// TOML (.toml) file:
//
//	entries:
//	  - type: IPV4
//	    value: 203.0.113.0/24
//
// The type is optional; when present it must match the value's family.
func LoadAllowListFile(path string) ([]Entry, error) {
	data, err := os.ReadFile(path) //nolint:gosec // operator supplied path
	if err != nil {
		return nil, util.NewProvisioningErrorWithCause("firewall.allowListFile", "failed to read file", err)
	}

	var doc allowListFile
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &doc)
	case ".toml":
		err = toml.Unmarshal(data, &doc)
	default:
		return nil, util.NewProvisioningError("firewall.allowListFile",
			fmt.Sprintf("unsupported file extension %q", ext))
	}
	if err != nil {
		return nil, util.NewProvisioningErrorWithCause("firewall.allowListFile", "failed to parse file", err)
	}

	return parseDescriptors(doc.Entries)
}

func parseDescriptors(descriptors []fileDescriptor) ([]Entry, error) {
	entries := make([]Entry, 0, len(descriptors))
	for i, d := range descriptors {
		field := fmt.Sprintf("firewall.allowListFile.entries[%d]", i)

		e, err := ParseEntry(d.Value)
		if err != nil {
			return nil, util.NewProvisioningErrorWithCause(field, "invalid entry", err)
		}

		if declared := strings.ToUpper(strings.TrimSpace(d.Type)); declared != "" && declared != e.Family {
			return nil, util.NewProvisioningError(field,
				fmt.Sprintf("type %s does not match value %s", d.Type, d.Value))
		}

		entries = append(entries, e)
	}
	return entries, nil
}
