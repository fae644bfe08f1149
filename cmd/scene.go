package cmd

import (
	"errors"
	"strings"

	"github.com/achernar/stardust/scene"
	"github.com/urfave/cli"
)

// Generate a particle snapshot from a procedural preset and compress it to a
// binary scene file.
func GenerateScene(ctx *cli.Context) error {
	setupLogging(ctx)

	preset, err := scene.ParsePreset(ctx.String("preset"))
	if err != nil {
		return err
	}

	logger.Noticef(`generating "%s" scene with %d particles`, preset, ctx.Int("particles"))
	sc := scene.NewDemoScene(preset, ctx.Int("particles"), uint32(ctx.Int("seed")))
	if ctx.Float64("time") != 0 {
		sc.Animate(float32(ctx.Float64("time")))
	}

	// Display generated scene info
	logger.Noticef("scene information:\n%s", sc.Stats())

	return scene.WriteScene(sc, ctx.String("out"))
}

// Display compressed scene info.
func ShowSceneInfo(ctx *cli.Context) error {
	setupLogging(ctx)

	if ctx.NArg() != 1 {
		return errors.New("missing compressed scene zip file")
	}

	sceneFile := ctx.Args().First()
	if !strings.HasSuffix(sceneFile, ".zip") {
		return errors.New("only compressed scene files with a .zip extension are supported")
	}

	sc, err := scene.ReadScene(sceneFile)
	if err != nil {
		return err
	}

	// Display compressed scene info
	logger.Noticef("scene information:\n%s", sc.Stats())

	return nil
}
