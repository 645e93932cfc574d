package relay

import (
	"context"
	"os"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// MirrorsConfig is the YAML shape of the optional mirror endpoints file:
//
//	mirrors:
//	  - name: backup-rpc
//	    url: https://rpc.example.org
//	  - name: staking-rpc
//	    url: https://rpc2.example.org
//	    disabled: true
type MirrorsConfig struct {
	Mirrors []struct {
		Name     string `yaml:"name"`
		URL      string `yaml:"url"`
		Disabled bool   `yaml:"disabled"`
	} `yaml:"mirrors"`
}

type mirrorBackend struct {
	name    string
	backend SendBackend
}

// MirrorsBackend forwards already-sent transactions to additional endpoints
// best effort. Mirror failures are logged and never affect the recorded
// outcome of a submission.
type MirrorsBackend struct {
	mirrors []mirrorBackend
}

// LoadMirrorsConfig parses the mirror endpoints file. An empty file name yields
// an empty backend.
func LoadMirrorsConfig(file string) (*MirrorsBackend, error) {
	if file == "" {
		return &MirrorsBackend{}, nil
	}
	data, err := os.ReadFile(file)
	if err != nil {
		return nil, err
	}

	var config MirrorsConfig
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, err
	}

	mirrors := make([]mirrorBackend, 0, len(config.Mirrors))
	for _, mirror := range config.Mirrors {
		if mirror.Disabled {
			continue
		}
		mirrors = append(mirrors, mirrorBackend{
			name:    mirror.Name,
			backend: NewJSONRPCSendBackend(mirror.URL),
		})
	}
	return &MirrorsBackend{mirrors: mirrors}, nil
}

func (m *MirrorsBackend) SendTransaction(ctx context.Context, logger *zap.Logger, txBase64 string, opts SendOpts) {
	for _, mirror := range m.mirrors {
		if _, err := mirror.backend.SendTransaction(ctx, txBase64, opts); err != nil {
			logger.Warn("failed to mirror transaction", zap.Error(err), zap.String("mirror", mirror.name))
		}
	}
}
