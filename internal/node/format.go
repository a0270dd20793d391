package node

import (
	"slices"
	"strings"

	"github.com/sakuffo/sakwatch/internal/xcontent"
)

// Describe renders the node as "[name][host][ip]". Segments for an unknown
// host or address are left out.
func (d *Descriptor) Describe() string {
	var sb strings.Builder
	sb.WriteString("[" + d.Name + "]")
	if d.HostName != "" {
		sb.WriteString("[" + d.HostName + "]")
	}
	if d.Address != nil {
		sb.WriteString("[" + d.Address.String() + "]")
	}
	return sb.String()
}

// RenderXContent writes the node identity into the currently open object of b.
func (d *Descriptor) RenderXContent(b xcontent.Builder) error {
	if err := b.Field("id", d.ID); err != nil {
		return err
	}
	if err := b.Field("name", d.Name); err != nil {
		return err
	}
	if d.Address != nil {
		fields := []struct {
			name  string
			value any
		}{
			{"transport_address", d.TransportAddress()},
			{"ip", d.Address.String()},
			{"host", d.HostName},
			{"ip_port", d.TransportAddress()},
		}
		for _, f := range fields {
			if err := b.Field(f.name, f.value); err != nil {
				return err
			}
		}
	}
	if err := b.Field("master_node", d.MasterEligible); err != nil {
		return err
	}
	if len(d.Attributes) == 0 {
		return nil
	}

	if err := b.StartObject("attributes"); err != nil {
		return err
	}
	keys := make([]string, 0, len(d.Attributes))
	for k := range d.Attributes {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	for _, k := range keys {
		if err := b.Field(k, d.Attributes[k]); err != nil {
			return err
		}
	}
	return b.EndObject()
}
