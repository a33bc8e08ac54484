package hooks

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"

	"go.uber.org/zap"
)

// ArtilleryTarget is the function running load tests.
const ArtilleryTarget = "artillery"

// ArtilleryConfig is the load test definition read from the project root.
const ArtilleryConfig = "artillery-config.yml"

// ErrArtilleryConfigMissing occurs when the project has no load test definition.
var ErrArtilleryConfigMissing = errors.New(`Create "artillery-config.yml" in your project root directory.`)

// Artillery copies the project's load test definition into the function before it is
// archived and removes the copy once the function is deployed.
func Artillery(log *zap.Logger) Set {
	if log == nil {
		log = zap.NewNop()
	}
	return Set{
		PreArchive: func(ctx context.Context, params Params) error {
			source := filepath.Join(params.ProjectDir, ArtilleryConfig)
			target := filepath.Join(params.FunctionDir, ArtilleryConfig)

			if err := os.Remove(target); err != nil && !os.IsNotExist(err) {
				return err
			}
			if _, err := os.Stat(source); os.IsNotExist(err) {
				return ErrArtilleryConfigMissing
			}

			log.Info("Copying artillery config.", zap.String("source", source), zap.String("target", target))
			return copyFile(source, target)
		},
		PostDeploy: func(ctx context.Context, params Params) error {
			target := filepath.Join(params.FunctionDir, ArtilleryConfig)
			err := os.Remove(target)
			if os.IsNotExist(err) {
				return nil
			}
			if err != nil {
				return err
			}
			log.Info("Artillery config cleaned up.", zap.String("target", target))
			return nil
		},
	}
}

func copyFile(source, target string) error {
	in, err := os.Open(source)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
