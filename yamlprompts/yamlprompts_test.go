package yamlprompts

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const catalog = `
prompts:
  ConfirmCancelAction: "Cancel order {{.OrderNo}}?"
actionResponses:
  cancellationSuccessful: "Order {{.OrderNo}} has been canceled."
  notAllowed: "This action is not allowed for order {{.OrderNo}}."
plain: "no templating here"
`

func TestParse_FlattensNestedKeys(t *testing.T) {
	t.Parallel()

	r, err := Parse([]byte(catalog))
	require.NoError(t, err)

	data := struct{ OrderNo string }{OrderNo: "Y100"}
	assert.Equal(t, "Cancel order Y100?", r.ResolveText("prompts.ConfirmCancelAction", data))
	assert.Equal(t, "Order Y100 has been canceled.", r.ResolveText("actionResponses.cancellationSuccessful", data))
	assert.Equal(t, "no templating here", r.ResolveText("plain", nil))
}

func TestResolveText_UnknownKeyEchoesKey(t *testing.T) {
	t.Parallel()

	r, err := Parse([]byte(catalog))
	require.NoError(t, err)
	assert.Equal(t, "actionResponses.noSuchKey", r.ResolveText("actionResponses.noSuchKey", nil))
}

func TestResolveText_MissingFieldRendersZero(t *testing.T) {
	t.Parallel()

	r, err := Parse([]byte(`msg: "hello {{.Name}}"`))
	require.NoError(t, err)
	assert.Equal(t, "hello <no value>", r.ResolveText("msg", map[string]any{}))
}

func TestParse_Errors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   string
	}{
		{name: "invalid yaml", in: "msg: [unclosed"},
		{name: "non-scalar leaf", in: "msg:\n  - a\n  - b"},
		{name: "bad template", in: `msg: "{{.Broken"`},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			_, err := Parse([]byte(tc.in))
			require.Error(t, err)
		})
	}
}

func TestLoad(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "messages.yaml")
	require.NoError(t, os.WriteFile(path, []byte(catalog), 0o644))

	r, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "no templating here", r.ResolveText("plain", nil))

	_, err = Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
}
