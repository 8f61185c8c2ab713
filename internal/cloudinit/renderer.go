// Package cloudinit renders the per-VM documents served to cloud-init's
// NoCloud datasource.
//
// A deployment picks one Renderer at startup.  Both variants share the
// meta-data document and differ only in user-data.  Documents are built
// from typed structs and encoded with yaml.v3, so a VM name is always a
// scalar and never changes the document shape.  VM names are still
// operator-supplied identifiers and are not validated here.
package cloudinit

import (
	"bytes"
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/yanizio/autoinstall/internal/config"
	"github.com/yanizio/autoinstall/internal/metrics"
)

// Document names, also used as metric labels and route suffixes.
const (
	DocUserData = "user-data"
	DocMetaData = "meta-data"
)

const cloudConfigHeader = "#cloud-config\n"

// Renderer produces the two NoCloud documents for a VM.
type Renderer interface {
	UserData(s config.Snapshot, vmName string) ([]byte, error)
	MetaData(vmName string) ([]byte, error)
	Variant() config.Variant
}

// New returns the Renderer for v.
func New(v config.Variant) (Renderer, error) {
	switch v {
	case config.VariantAutoinstall:
		return Autoinstall{}, nil
	case config.VariantUserCreate:
		return UserCreate{}, nil
	default:
		return nil, fmt.Errorf("unknown render variant %q", v)
	}
}

// MetaData is the NoCloud meta-data document.
type MetaData struct {
	InstanceID    string `yaml:"instance-id"`
	LocalHostname string `yaml:"local-hostname"`
}

func renderMetaData(v config.Variant, vmName string) ([]byte, error) {
	out, err := encode("", MetaData{InstanceID: vmName, LocalHostname: vmName})
	return observe(DocMetaData, v, out, err)
}

// encode writes header followed by v as YAML with two-space indents.
func encode(header string, v any) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString(header)

	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return nil, fmt.Errorf("encode document: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("encode document: %w", err)
	}
	return buf.Bytes(), nil
}

func observe(doc string, v config.Variant, out []byte, err error) ([]byte, error) {
	if err != nil {
		metrics.RenderErrors.WithLabelValues(doc, string(v)).Inc()
		return nil, err
	}
	metrics.DocumentsRendered.WithLabelValues(doc, string(v)).Inc()
	return out, nil
}
