// Package main is a command that estimates the relative pose between two
// camera views from a JSON scene file of matched pixel coordinates.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/edaniels/golog"
	"github.com/golang/geo/r2"
	"go.viam.com/utils"
	"gonum.org/v1/gonum/mat"

	"github.com/sfmkit/relpose/camera"
	"github.com/sfmkit/relpose/estimation"
	"github.com/sfmkit/relpose/matches"
	"github.com/sfmkit/relpose/solver/epipolar"
)

var logger = golog.NewLogger("relpose")

// sceneConfig is the on-disk input: the two cameras, their matched pixel
// coordinates in order, and estimation options.
type sceneConfig struct {
	Camera1 *camera.Intrinsics `json:"camera1"`
	Camera2 *camera.Intrinsics `json:"camera2"`
	Points1 []r2.Point         `json:"points1"`
	Points2 []r2.Point         `json:"points2"`
	Options estimation.Options `json:"options"`
}

// loadSceneConfig loads a scene from a JSON file.
func loadSceneConfig(path string) (*sceneConfig, error) {
	var config sceneConfig
	//nolint:gosec
	configFile, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer utils.UncheckedErrorFunc(configFile.Close)
	if err := json.NewDecoder(configFile).Decode(&config); err != nil {
		return nil, err
	}
	return &config, nil
}

func main() {
	algorithm := flag.String("algorithm", "", "override the algorithm option from the scene file")
	flag.Parse()
	if flag.NArg() < 1 {
		logger.Fatal("need one arg <scene.json>")
	}

	config, err := loadSceneConfig(flag.Arg(0))
	if err != nil {
		logger.Fatal(err.Error())
	}
	if err := config.Camera1.CheckValid(); err != nil {
		logger.Fatal(err.Error())
	}
	if err := config.Camera2.CheckValid(); err != nil {
		logger.Fatal(err.Error())
	}
	if len(config.Points1) != len(config.Points2) {
		logger.Fatalf("points1 and points2 differ in length: %d vs %d", len(config.Points1), len(config.Points2))
	}

	opts := config.Options
	if opts == nil {
		opts = estimation.Options{}
	}
	if *algorithm != "" {
		opts["algorithm"] = *algorithm
	}

	set := make(matches.Set, len(config.Points1))
	for i := range set {
		set[i] = matches.Correspondence{I: i, J: i}
	}
	features := matches.StaticFeatures{
		opts.Int("view_i", 0): config.Points1,
		opts.Int("view_j", 1): config.Points2,
	}
	cameras := camera.StaticModels{
		opts.Int("view_i", 0): config.Camera1,
		opts.Int("view_j", 1): config.Camera2,
	}

	estimator := estimation.NewEstimator(epipolar.NewSolver(logger), logger)
	result, err := estimator.Run(context.Background(), set, features, cameras, opts)
	if err != nil {
		logger.Fatal(err.Error())
	}

	fmt.Printf("rotation:\n%v\n", mat.Formatted(result.Rotation))
	fmt.Printf("translation direction: (%.6f, %.6f, %.6f)\n",
		result.Translation.X, result.Translation.Y, result.Translation.Z)
	fmt.Printf("inliers: %d / %d\n", set.NumInliers(), len(set))
}
