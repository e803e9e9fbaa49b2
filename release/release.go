// Package release derives the publishable descriptor for a packaged bundle:
// measured compressed size and hash, the uncompressed size carried over from
// the verified source manifest, and names rendered by a configurable policy.
package release

import (
	"encoding/json"
	"fmt"
	"net/url"
	"os"

	"github.com/Masterminds/semver/v3"
	"github.com/aymerick/raymond"
	"github.com/orion-system/patchforge/config"
	"github.com/orion-system/patchforge/manifest"
	"github.com/orion-system/patchforge/util"
)

type Descriptor struct {
	Tag              string `json:"tag"`
	Filename         string `json:"filename"`
	DownloadURL      string `json:"download_url"`
	CompressedSize   int64  `json:"compressed_size"`
	UncompressedSize int64  `json:"uncompressed_size"`
	SHA256           string `json:"sha256"`
}

// Document is the on-disk release info file, keyed by version for full
// builds or by a version pair for patch bundles.
type Document map[string]Descriptor

// Naming renders tag, filename and download URL from templates. The tag is
// rendered first and fed to the filename template, both feed the URL
// template, matching how releases are laid out on the download host.
type Naming struct {
	Product   string
	Templates config.NamingTemplates
}

func (n Naming) Render(tctx map[string]string) (Descriptor, error) {
	ctx := map[string]string{"product": n.Product}
	for k, v := range tctx {
		ctx[k] = v
	}
	tag, err := raymond.Render(n.Templates.Tag, ctx)
	if err != nil {
		return Descriptor{}, fmt.Errorf("bad tag template: %w", err)
	}
	ctx["tag"] = tag
	filename, err := raymond.Render(n.Templates.Filename, ctx)
	if err != nil {
		return Descriptor{}, fmt.Errorf("bad filename template: %w", err)
	}
	ctx["filename"] = filename
	download, err := raymond.Render(n.Templates.DownloadURL, ctx)
	if err != nil {
		return Descriptor{}, fmt.Errorf("bad download URL template: %w", err)
	}
	if u, err := url.Parse(download); err != nil || u.Scheme == "" || u.Host == "" {
		return Descriptor{}, fmt.Errorf("rendered download URL %q is not absolute", download)
	}
	return Descriptor{Tag: tag, Filename: filename, DownloadURL: download}, nil
}

type Builder struct {
	Naming Naming
}

// Build measures the bundle and assembles the descriptor for a full build.
// The uncompressed size is taken from the manifest, not recomputed: the
// caller is expected to have verified the manifest already, and that trust
// saves a second full-tree walk.
func (b *Builder) Build(bundlePath string, m *manifest.Manifest) (string, Descriptor, error) {
	if _, err := semver.NewVersion(m.Version); err != nil {
		return "", Descriptor{}, fmt.Errorf("version %q is not a valid semantic version: %w", m.Version, err)
	}
	d, err := b.Naming.Render(map[string]string{"version": m.Version})
	if err != nil {
		return "", Descriptor{}, err
	}
	if err := b.measure(bundlePath, &d); err != nil {
		return "", Descriptor{}, err
	}
	d.UncompressedSize = m.BuildTotalSize
	return m.Version, d, nil
}

// BuildPatch assembles the descriptor for a patch bundle between two
// versions, keyed by the version pair. The uncompressed size reports the
// target tree, since that is what a client holds after applying.
func (b *Builder) BuildPatch(bundlePath string, from *manifest.Manifest, to *manifest.Manifest) (string, Descriptor, error) {
	for _, v := range []string{from.Version, to.Version} {
		if _, err := semver.NewVersion(v); err != nil {
			return "", Descriptor{}, fmt.Errorf("version %q is not a valid semantic version: %w", v, err)
		}
	}
	d, err := b.Naming.Render(map[string]string{"from": from.Version, "to": to.Version})
	if err != nil {
		return "", Descriptor{}, err
	}
	if err := b.measure(bundlePath, &d); err != nil {
		return "", Descriptor{}, err
	}
	d.UncompressedSize = to.BuildTotalSize
	return from.Version + "-to-" + to.Version, d, nil
}

func (b *Builder) measure(bundlePath string, d *Descriptor) error {
	size, err := util.FileSize(bundlePath)
	if err != nil {
		return fmt.Errorf("bundle %s not measurable: %w", bundlePath, err)
	}
	hash, err := util.SHA256File(bundlePath)
	if err != nil {
		return err
	}
	d.CompressedSize = size
	d.SHA256 = hash
	return nil
}

// WriteDocument adds (or replaces) one key in the release info file at path,
// preserving any other keys already present, and writes it back atomically.
// Descriptors are never mutated in place; a re-run lands under its own key.
func WriteDocument(path string, key string, d Descriptor) error {
	doc := Document{}
	if raw, err := os.ReadFile(path); err == nil {
		if err := json.Unmarshal(raw, &doc); err != nil {
			return fmt.Errorf("%w: release info %s: %s", manifest.ErrSchema, path, err)
		}
	} else if !os.IsNotExist(err) {
		return err
	}
	doc[key] = d
	raw, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return err
	}
	raw = append(raw, '\n')
	return util.WriteFileAtomic(path, raw, 0644)
}
