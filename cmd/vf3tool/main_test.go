package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const cielText = `
<frame>
body::(0,10,0)
head:body:(0,5,0):(0,0,0):HP
waist:body:(0,-2,0)
</>
<skin>
1,0,0,0,0,0,0:ciel.head
0,1,0,0,0,0,0:ciel.torso
0,0,0,0,2,0,0:ciel.hips
</>
<defaultcos>
ciel.blazer
</>
<head>
head:ciel.head
</>
<torso>
body:ciel.body_vp
</>
<body_vp>
body:ciel.body
DynamicVisual:
body:0:(0,0,1.05):(0,0,5)
FaceArray:
0,0,0:0
</>
<hips>
waist:ciel.hips
</>
<blazer>
0,3,0,0,0,0,0:ciel.blazer_vp
</>
<blazer_vp>
body:ciel.blazer_body
</>
`

const meshesYAML = `
meshes:
  - id: ciel.head
    type: head
    positions: [[0, 0, 0]]
  - id: ciel.body
    positions: [[0, 0, 1]]
  - id: ciel.hips
    positions: [[0, 0, 0]]
  - id: ciel.blazer_body
    positions: [[0, 0, 1.5]]
`

func testData(t *testing.T) string {
	t.Helper()
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "CIEL.TXT"), []byte(cielText), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "meshes.yaml"), []byte(meshesYAML), 0644); err != nil {
		t.Fatal(err)
	}
	return dir
}

func runTool(t *testing.T, args ...string) (string, string, int) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	code := run(args, &stdout, &stderr)
	return stdout.String(), stderr.String(), code
}

func TestRun_Usage(t *testing.T) {
	if _, _, code := runTool(t); code != 1 {
		t.Errorf("expected exit 1 without a command, got %d", code)
	}
	if out, _, code := runTool(t, "help"); code != 0 || !strings.Contains(out, "Commands:") {
		t.Errorf("expected usage, got %d %q", code, out)
	}
	if _, errOut, code := runTool(t, "explode"); code != 1 || !strings.Contains(errOut, "Unknown command") {
		t.Errorf("expected unknown command, got %d %q", code, errOut)
	}
	if _, errOut, code := runTool(t, "info"); code != 1 || !strings.Contains(errOut, "Usage: vf3tool info") {
		t.Errorf("expected missing descriptor usage, got %d %q", code, errOut)
	}
}

func TestRun_Commands(t *testing.T) {
	dir := testData(t)
	desc := filepath.Join(dir, "CIEL.TXT")

	tests := []struct {
		name string
		args []string
		want []string
	}{
		{
			name: "info",
			args: []string{"info", desc},
			want: []string{"Descriptor: ciel", "Bones:      3", "blazer", "connector (1 vertices)"},
		},
		{
			name: "bones",
			args: []string{"bones", desc},
			want: []string{"body", "  head", "(0.000, 15.000, 0.000)", "flags HP"},
		},
		{
			name: "resolve default costume",
			args: []string{"resolve", desc},
			want: []string{"Layers: skin > ciel.blazer", "ciel.blazer_body", "Excluded (1):", "Connectors (0):"},
		},
		{
			name: "resolve naked by prefix",
			args: []string{"resolve", "-dirs", dir, "-naked", "ciel"},
			want: []string{"Active (3):", "Excluded (0):", "Connectors (1):"},
		},
		{
			name: "assemble",
			args: []string{"assemble", "-meshes", filepath.Join(dir, "meshes.yaml"), "-naked", desc},
			want: []string{"Armature", "- ciel.body [body] layer 0, 1 vertices", "~ ciel:body_vp 1 vertices", "Meshes: 3  Connectors: 1"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, errOut, code := runTool(t, tt.args...)
			if code != 0 {
				t.Fatalf("exit %d: %s", code, errOut)
			}
			for _, w := range tt.want {
				if !strings.Contains(out, w) {
					t.Errorf("output missing %q:\n%s", w, out)
				}
			}
		})
	}
}

func TestRun_MissingDescriptor(t *testing.T) {
	dir := testData(t)
	_, errOut, code := runTool(t, "resolve", "-dirs", dir, "rin")
	if code != 1 || !strings.Contains(errOut, "descriptor not found") {
		t.Errorf("expected not found error, got %d %q", code, errOut)
	}
}

func TestRun_Config(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vf3.yaml")
	out, errOut, code := runTool(t, "config", path)
	if code != 0 {
		t.Fatalf("exit %d: %s", code, errOut)
	}
	if !strings.Contains(out, "Wrote") {
		t.Errorf("unexpected output %q", out)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "max_snap: 2") {
		t.Errorf("expected defaults in config, got:\n%s", data)
	}
}
