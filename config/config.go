// Package config carries the pipeline configuration. Components receive an
// explicit Config (or a sub-struct of it) through their constructors, so two
// pipelines with different settings can run in one process.
package config

import (
	"fmt"
	"os"
	"runtime"

	"sigs.k8s.io/yaml"
)

type IgnoreRules struct {
	// Folders are path segment names; a file under any matching ancestor
	// directory is skipped.
	Folders []string `json:"folders"`
	// Suffixes are filename endings, e.g. ".log".
	Suffixes []string `json:"suffixes"`
}

type PatchSettings struct {
	// Encoder picks the delta implementation: bsdiff, verbatim or exec.
	Encoder string `json:"encoder"`
	// Suffix is appended to each relative path to name its patch blob.
	Suffix string `json:"suffix"`
	// Command and ApplyCommand are raymond templates for the external tool,
	// rendered with {{old}}, {{new}} and {{patch}} file paths.
	Command      string `json:"command"`
	ApplyCommand string `json:"applyCommand"`
	// TimeoutSeconds bounds every external tool invocation.
	TimeoutSeconds int `json:"timeoutSeconds"`
}

type NamingTemplates struct {
	Tag         string `json:"tag"`
	Filename    string `json:"filename"`
	DownloadURL string `json:"downloadUrl"`
}

type ReleaseSettings struct {
	// Product is the artifact base name interpolated into filenames.
	Product string          `json:"product"`
	Build   NamingTemplates `json:"build"`
	Patch   NamingTemplates `json:"patch"`
}

type Config struct {
	ManifestFilename string          `json:"manifestFilename"`
	VersionFilename  string          `json:"versionFilename"`
	Workers          int             `json:"workers"`
	Ignore           IgnoreRules     `json:"ignore"`
	Patch            PatchSettings   `json:"patch"`
	Release          ReleaseSettings `json:"release"`
}

func Default() Config {
	return Config{
		ManifestFilename: "files_manifest.json",
		VersionFilename:  "version.txt",
		Workers:          runtime.NumCPU(),
		Ignore: IgnoreRules{
			Folders:  []string{"Temp", "Logs"},
			Suffixes: []string{".log", ".pdb", ".bak"},
		},
		Patch: PatchSettings{
			Encoder:        "bsdiff",
			Suffix:         ".xdelta",
			Command:        "xdelta3 -e -s {{old}} {{new}} {{patch}}",
			ApplyCommand:   "xdelta3 -d -s {{old}} {{patch}} {{new}}",
			TimeoutSeconds: 300,
		},
		Release: ReleaseSettings{
			Product: "edupie-base",
			Build: NamingTemplates{
				Tag:         "v{{version}}-base",
				Filename:    "{{product}}-v{{version}}.zip",
				DownloadURL: "https://github.com/orion-system/edupie-releases/releases/download/{{tag}}/{{filename}}",
			},
			Patch: NamingTemplates{
				Tag:         "v{{from}}-to-v{{to}}-patch",
				Filename:    "{{product}}-patch-v{{from}}-to-v{{to}}.zip",
				DownloadURL: "https://github.com/orion-system/edupie-releases/releases/download/{{tag}}/{{filename}}",
			},
		},
	}
}

// LoadFile reads a YAML config over the defaults. Unknown keys are an error
// so a typoed setting never silently falls back.
func LoadFile(path string) (Config, error) {
	conf := Default()
	raw, err := os.ReadFile(path)
	if err != nil {
		return conf, fmt.Errorf("failed to read config %s: %w", path, err)
	}
	if err := yaml.UnmarshalStrict(raw, &conf); err != nil {
		return conf, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	if conf.Workers < 1 {
		conf.Workers = runtime.NumCPU()
	}
	return conf, nil
}
