package flagx

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFilterArgs(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		allowed []string
		want    []string
	}{
		{
			name:    "short flag with separate value",
			args:    []string{"-c", "conf.json", "-a", "http://localhost:8000"},
			allowed: []string{"-c", "--config"},
			want:    []string{"-c", "conf.json"},
		},
		{
			name:    "long flag with equals",
			args:    []string{"--config=alt.json", "-a", "http://localhost:8000"},
			allowed: []string{"-c", "--config"},
			want:    []string{"--config=alt.json"},
		},
		{
			name:    "unknown flags ignored",
			args:    []string{"-x", "1", "--y=2", "positional"},
			allowed: []string{"-c"},
			want:    []string{},
		},
		{
			name:    "flag without value at end is kept",
			args:    []string{"-c"},
			allowed: []string{"-c"},
			want:    []string{"-c"},
		},
		{
			name:    "dash token is not consumed as value",
			args:    []string{"-c", "--config=alt.json"},
			allowed: []string{"-c", "--config"},
			want:    []string{"-c", "--config=alt.json"},
		},
		{
			name:    "several allowed flags in order",
			args:    []string{"-a", "http://h:1", "-i", "30", "-d", "x.db", "-l", "debug"},
			allowed: []string{"-a", "-i", "-l"},
			want:    []string{"-a", "http://h:1", "-i", "30", "-l", "debug"},
		},
		{
			name:    "empty args",
			args:    []string{},
			allowed: []string{"-c"},
			want:    []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FilterArgs(tt.args, tt.allowed))
		})
	}
}

func TestConfigPath(t *testing.T) {
	assert.Equal(t, "/p/short.json", ConfigPath([]string{"-c", "/p/short.json"}))
	assert.Equal(t, "/p/long.json", ConfigPath([]string{"-config", "/p/long.json", "-a", "x"}))
	assert.Equal(t, "/p/2.json", ConfigPath([]string{"-c", "/p/1.json", "-config", "/p/2.json"}))
	assert.Empty(t, ConfigPath([]string{"-x", "1"}))
}

func TestJsonConfigFlags_ReadsProcessArgs(t *testing.T) {
	orig := os.Args
	t.Cleanup(func() { os.Args = orig })

	os.Args = []string{"gophstore", "-i", "10", "-c", "/etc/gophstore.json"}
	assert.Equal(t, "/etc/gophstore.json", JsonConfigFlags())
}
