package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/kelseyhightower/envconfig"
)

const (
	// ConfigDir is the default config directory name.
	ConfigDir = ".yuibot"
	// ConfigFile is the default config file name.
	ConfigFile = "config.json"
)

// Path returns the path to the config file.
func Path() (string, error) {
	if explicit := strings.TrimSpace(os.Getenv("YUIBOT_CONFIG")); explicit != "" {
		if strings.HasPrefix(explicit, "~") {
			home, err := resolveHomeDir()
			if err != nil {
				return "", err
			}
			return filepath.Join(home, explicit[1:]), nil
		}
		return explicit, nil
	}
	home, err := resolveHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ConfigDir, ConfigFile), nil
}

func resolveHomeDir() (string, error) {
	if h := strings.TrimSpace(os.Getenv("YUIBOT_HOME")); h != "" {
		if strings.HasPrefix(h, "~") {
			base, err := os.UserHomeDir()
			if err != nil {
				return "", err
			}
			return filepath.Join(base, h[1:]), nil
		}
		return h, nil
	}
	return os.UserHomeDir()
}

// Load reads the document at path, deep-merges it over the compiled-in
// defaults and validates it. A missing file yields the default document
// (written back so the operator has a template to edit). A structurally
// invalid file is fatal: no resolution may run on a partial document.
// Priority: environment > file > defaults (environment applies only to the
// service section).
func Load(path string) (*Document, error) {
	merged := DefaultDocument()

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		merged, err = mergeOverDefaults(data)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrMalformedDocument, path, err)
		}
	case os.IsNotExist(err):
		// Keep defaults; write a template below so the REQUIRED keys are
		// visible to the operator.
		if saveErr := writeDocument(path, merged); saveErr == nil {
			fmt.Fprintf(os.Stderr, "config: created template at %s\n", path)
		}
	default:
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	ensureSections(merged)

	if missing := missingRequired(merged); len(missing) > 0 {
		return nil, fmt.Errorf("%w: %s (edit %s)", ErrKeyMissing, strings.Join(missing, ", "), path)
	}

	healAdminEntry(merged)

	if err := envconfig.Process("YUIBOT_SERVICE", &merged.Service); err != nil {
		return nil, fmt.Errorf("service env overrides: %w", err)
	}
	return merged, nil
}

// mergeOverDefaults unmarshals raw JSON and recursively merges it over the
// compiled-in defaults, so a partial file inherits every unspecified key.
func mergeOverDefaults(data []byte) (*Document, error) {
	var overlay map[string]any
	if err := json.Unmarshal(data, &overlay); err != nil {
		return nil, err
	}
	if overlay == nil {
		return nil, fmt.Errorf("document root is not an object")
	}

	baseData, err := json.Marshal(DefaultDocument())
	if err != nil {
		return nil, err
	}
	var base map[string]any
	if err := json.Unmarshal(baseData, &base); err != nil {
		return nil, err
	}

	mergedMap := mergeMaps(base, overlay)
	mergedData, err := json.Marshal(mergedMap)
	if err != nil {
		return nil, err
	}
	doc := &Document{}
	if err := json.Unmarshal(mergedData, doc); err != nil {
		return nil, err
	}
	return doc, nil
}

// mergeMaps recursively merges overlay into base. Non-object overlay values
// replace the base value wholesale.
func mergeMaps(base, overlay map[string]any) map[string]any {
	out := make(map[string]any, len(base)+len(overlay))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range overlay {
		if ov, ok := v.(map[string]any); ok {
			if bv, ok := out[k].(map[string]any); ok {
				out[k] = mergeMaps(bv, ov)
				continue
			}
		}
		out[k] = v
	}
	return out
}

// ensureSections repairs sections a hand-edited file may have nulled out.
func ensureSections(doc *Document) {
	defaults := DefaultDocument()
	if doc.Groups == nil {
		doc.Groups = map[string]*ScopeNode{}
	}
	if doc.Groups[DefaultScopeKey] == nil {
		doc.Groups[DefaultScopeKey] = defaults.Groups[DefaultScopeKey]
	}
	if doc.Private.Default == nil {
		doc.Private.Default = defaults.Private.Default
	}
	if doc.Permissions.Users == nil {
		doc.Permissions.Users = map[string]*PermissionEntry{}
	}
	if doc.RandomEvents == nil {
		doc.RandomEvents = defaults.RandomEvents
	}
}

// missingRequired returns the identity keys still carrying the REQUIRED
// sentinel or no value at all.
func missingRequired(doc *Document) []string {
	var missing []string
	if doc.Bot.QQNo == "" || doc.Bot.QQNo == RequiredSentinel {
		missing = append(missing, "qq_bot.qq_no")
	}
	if doc.Bot.AdminQQ == "" || doc.Bot.AdminQQ == RequiredSentinel {
		missing = append(missing, "qq_bot.admin_qq")
	}
	if len(doc.Gemini.APIKeys) == 0 {
		missing = append(missing, "gemini.api_keys")
	} else {
		for _, k := range doc.Gemini.APIKeys {
			if k == RequiredSentinel {
				missing = append(missing, "gemini.api_keys")
				break
			}
		}
	}
	return missing
}

// healAdminEntry guarantees the configured admin id carries the admin role
// in the permission table, creating or repairing the entry as needed.
func healAdminEntry(doc *Document) {
	admin := doc.Bot.AdminQQ
	if admin == "" || admin == RequiredSentinel {
		return
	}
	entry := doc.Permissions.Users[admin]
	if entry == nil {
		doc.Permissions.Users[admin] = &PermissionEntry{
			Roles: []string{"admin", "private_user"},
		}
		return
	}
	for _, r := range entry.Roles {
		if r == "admin" {
			return
		}
	}
	entry.Roles = append(entry.Roles, "admin")
}

// writeDocument atomically replaces the file at path with doc.
func writeDocument(path string, doc *Document) error {
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return err
		}
	}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), ConfigFile+".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(append(data, '\n')); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Chmod(tmpName, 0o600); err != nil {
		os.Remove(tmpName)
		return err
	}
	return os.Rename(tmpName, path)
}
