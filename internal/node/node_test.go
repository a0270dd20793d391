package node

import (
	"net"
	"testing"

	"github.com/sakuffo/sakwatch/internal/xcontent"
)

func TestNew(t *testing.T) {
	name := "test-node"
	ip := net.ParseIP("192.168.1.1")
	port := 7946

	n := New(name, ip, port)

	if n.Name != name {
		t.Errorf("Expected name %s, got %s", name, n.Name)
	}
	if !n.Address.Equal(ip) {
		t.Errorf("Expected IP %v, got %v", ip, n.Address)
	}
	if n.Port != port {
		t.Errorf("Expected port %d, got %d", port, n.Port)
	}
	if n.State != Alive {
		t.Errorf("Expected initial state to be Alive, got %v", n.State)
	}
	if !n.MasterEligible {
		t.Error("Expected new node to be master eligible")
	}
	if n.ID == "" {
		t.Error("Expected non-empty UUID")
	}
	if n.Attributes == nil {
		t.Error("Expected initialized attributes map")
	}
}

func TestClone(t *testing.T) {
	n := New("a", net.ParseIP("10.0.0.1"), 9300)
	n.Attributes["zone"] = "eu-1"

	c := n.Clone()
	c.Attributes["zone"] = "us-1"
	c.Address[len(c.Address)-1] = 9
	c.State = Dead

	if n.Attributes["zone"] != "eu-1" {
		t.Error("clone shares attributes with original")
	}
	if !n.Address.Equal(net.ParseIP("10.0.0.1")) {
		t.Errorf("clone shares address with original: %v", n.Address)
	}
	if n.State != Alive {
		t.Error("clone shares state with original")
	}
}

func TestDescribe(t *testing.T) {
	tests := []struct {
		name string
		node *Descriptor
		want string
	}{
		{
			name: "name host and ip",
			node: &Descriptor{Name: "n1", HostName: "host-1", Address: net.ParseIP("10.0.0.1")},
			want: "[n1][host-1][10.0.0.1]",
		},
		{
			name: "no host",
			node: &Descriptor{Name: "n1", Address: net.ParseIP("10.0.0.1")},
			want: "[n1][10.0.0.1]",
		},
		{
			name: "name only",
			node: &Descriptor{Name: "n1"},
			want: "[n1]",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.node.Describe(); got != tt.want {
				t.Errorf("Describe() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestRenderXContent(t *testing.T) {
	n := &Descriptor{
		ID:             "id-1",
		Name:           "n1",
		HostName:       "host-1",
		Address:        net.ParseIP("10.0.0.1"),
		Port:           9300,
		MasterEligible: true,
		Attributes:     map[string]string{"zone": "a", "rack": "r1"},
	}

	b := xcontent.NewJSON()
	if err := n.RenderXContent(b); err != nil {
		t.Fatalf("RenderXContent: %v", err)
	}
	if err := b.Close(); err != nil {
		t.Fatal(err)
	}

	want := `{"id":"id-1","name":"n1","transport_address":"10.0.0.1:9300","ip":"10.0.0.1",` +
		`"host":"host-1","ip_port":"10.0.0.1:9300","master_node":true,"attributes":{"rack":"r1","zone":"a"}}`
	if got := string(b.Bytes()); got != want {
		t.Errorf("document =\n%s\nwant\n%s", got, want)
	}
}

func TestRenderXContentWithoutAddress(t *testing.T) {
	n := &Descriptor{ID: "id-2", Name: "n2"}

	b := xcontent.NewJSON()
	if err := n.RenderXContent(b); err != nil {
		t.Fatal(err)
	}
	b.Close()

	want := `{"id":"id-2","name":"n2","master_node":false}`
	if got := string(b.Bytes()); got != want {
		t.Errorf("document = %s, want %s", got, want)
	}
}

func TestStateString(t *testing.T) {
	for state, want := range map[State]string{
		Unknown: "unknown",
		Alive:   "alive",
		Suspect: "suspect",
		Dead:    "dead",
	} {
		if got := state.String(); got != want {
			t.Errorf("State(%d).String() = %q, want %q", state, got, want)
		}
	}
}
