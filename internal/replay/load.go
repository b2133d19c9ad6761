package replay

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/go-faster/errors"
	"github.com/sirupsen/logrus"
	"github.com/tidwall/gjson"
	"gopkg.in/yaml.v3"
)

// Loader reads replay definitions from disk.
type Loader struct {
	LookupEnv func(string) (string, bool) // defaults to os.LookupEnv
	Logger    logrus.FieldLogger          // optional
	OnLoaded  func(Definition)            // called after each successful load
}

// LoadFile reads and validates one definition. The document format follows
// the extension: .yaml and .yml are YAML, anything else is JSON.
func (l Loader) LoadFile(path string) (Definition, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Definition{}, errors.Wrap(err, "read")
	}
	content := ExpandEnv(string(raw), l.LookupEnv)

	var doc map[string]interface{}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		doc, err = decodeYAML(content)
	default:
		doc, err = decodeJSON(content)
	}
	if err != nil {
		return Definition{}, err
	}
	if err := validateDocument(doc); err != nil {
		return Definition{}, err
	}

	def := fromDocument(doc)
	def.Path = path
	if err := def.Validate(); err != nil {
		return Definition{}, err
	}
	return def, nil
}

// LoadFiles loads every path in order. All files are attempted; when any of
// them fails a *LoadError listing each failure is returned.
func (l Loader) LoadFiles(paths []string) ([]Definition, error) {
	if len(paths) == 0 {
		return nil, ErrNoReplayFiles
	}
	defs := make([]Definition, 0, len(paths))
	var failures []FileError
	for _, path := range paths {
		def, err := l.LoadFile(path)
		if err != nil {
			if l.Logger != nil {
				l.Logger.WithField("file", path).WithError(err).Error("error reading replay file")
			}
			failures = append(failures, FileError{File: path, Err: err})
			continue
		}
		if l.Logger != nil {
			l.Logger.WithFields(logrus.Fields{
				"file":    path,
				"name":    def.Name,
				"uris":    len(def.URIs),
				"headers": len(def.Headers),
			}).Debug("replay file loaded")
		}
		if l.OnLoaded != nil {
			l.OnLoaded(def)
		}
		defs = append(defs, def)
	}
	if len(failures) > 0 {
		return nil, &LoadError{Failures: failures}
	}
	return defs, nil
}

// decodeJSON walks the top-level object with gjson and lower-cases its keys.
func decodeJSON(content string) (map[string]interface{}, error) {
	if !gjson.Valid(content) {
		return nil, errors.New("invalid JSON document")
	}
	root := gjson.Parse(content)
	if !root.IsObject() {
		return nil, errors.New("replay document must be an object")
	}
	doc := map[string]interface{}{}
	root.ForEach(func(key, value gjson.Result) bool {
		doc[strings.ToLower(key.String())] = value.Value()
		return true
	})
	return doc, nil
}

func decodeYAML(content string) (map[string]interface{}, error) {
	var raw map[string]interface{}
	if err := yaml.Unmarshal([]byte(content), &raw); err != nil {
		return nil, errors.Wrap(err, "invalid YAML document")
	}
	if raw == nil {
		return nil, errors.New("replay document must be an object")
	}
	doc := make(map[string]interface{}, len(raw))
	for k, v := range raw {
		doc[strings.ToLower(k)] = v
	}
	return doc, nil
}

// fromDocument maps a schema-valid document onto a Definition.
func fromDocument(doc map[string]interface{}) Definition {
	def := Definition{
		Name:        stringField(doc, "name"),
		Description: stringField(doc, "description"),
		BaseURI:     strings.TrimSpace(stringField(doc, "baseuri")),
	}
	if hdrs, ok := doc["headers"].(map[string]interface{}); ok {
		def.Headers = make(map[string]string, len(hdrs))
		for k, v := range hdrs {
			if s, ok := v.(string); ok {
				def.Headers[k] = s
			}
		}
	}
	if uris, ok := doc["uris"].([]interface{}); ok {
		def.URIs = make([]string, 0, len(uris))
		for _, u := range uris {
			if s, ok := u.(string); ok {
				def.URIs = append(def.URIs, s)
			}
		}
	}
	return def
}

func stringField(doc map[string]interface{}, key string) string {
	s, _ := doc[key].(string)
	return s
}
