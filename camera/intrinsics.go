// Package camera provides the pinhole camera model used to relate pixel
// coordinates to viewing directions.
package camera

import (
	"encoding/json"
	"io"
	"os"

	"github.com/golang/geo/r2"
	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"go.viam.com/utils"
	"gonum.org/v1/gonum/mat"
)

// ErrNoIntrinsics is returned when a view has no camera intrinsics available.
var ErrNoIntrinsics = errors.New("camera intrinsic parameters are not available")

// Intrinsics holds the pinhole parameters necessary to project a 3D scene
// onto the 2D image plane of one camera.
type Intrinsics struct {
	Fx  float64 `json:"fx"`
	Fy  float64 `json:"fy"`
	Ppx float64 `json:"ppx"`
	Ppy float64 `json:"ppy"`
}

// CheckValid checks if the fields for Intrinsics have valid inputs.
func (params *Intrinsics) CheckValid() error {
	if params == nil {
		return ErrNoIntrinsics
	}
	var err error
	if params.Fx <= 0 {
		err = multierr.Append(err, errors.Errorf("invalid focal length Fx = %#v", params.Fx))
	}
	if params.Fy <= 0 {
		err = multierr.Append(err, errors.Errorf("invalid focal length Fy = %#v", params.Fy))
	}
	if params.Ppx < 0 {
		err = multierr.Append(err, errors.Errorf("invalid principal X point Ppx = %#v", params.Ppx))
	}
	if params.Ppy < 0 {
		err = multierr.Append(err, errors.Errorf("invalid principal Y point Ppy = %#v", params.Ppy))
	}
	return err
}

// NewIntrinsicsFromJSONFile takes in a file path to a JSON and turns it into Intrinsics.
func NewIntrinsicsFromJSONFile(jsonPath string) (*Intrinsics, error) {
	//nolint:gosec
	jsonFile, err := os.Open(jsonPath)
	if err != nil {
		return nil, errors.Wrap(err, "error opening JSON file")
	}
	defer utils.UncheckedErrorFunc(jsonFile.Close)
	byteValue, err := io.ReadAll(jsonFile)
	if err != nil {
		return nil, errors.Wrap(err, "error reading JSON data")
	}
	intrinsics := &Intrinsics{}
	if err := json.Unmarshal(byteValue, intrinsics); err != nil {
		return nil, errors.Wrap(err, "error parsing JSON string")
	}
	return intrinsics, nil
}

// CameraMatrix returns the intrinsics as a 3x3 camera matrix.
func (params *Intrinsics) CameraMatrix() *mat.Dense {
	k := mat.NewDense(3, 3, nil)
	k.Set(0, 0, params.Fx)
	k.Set(1, 1, params.Fy)
	k.Set(0, 2, params.Ppx)
	k.Set(1, 2, params.Ppy)
	k.Set(2, 2, 1)
	return k
}

// NormalizedCoords undoes the intrinsic projection of a pixel coordinate,
// returning coordinates on the z=1 image plane.
func (params *Intrinsics) NormalizedCoords(pt r2.Point) r2.Point {
	return r2.Point{
		X: (pt.X - params.Ppx) / params.Fx,
		Y: (pt.Y - params.Ppy) / params.Fy,
	}
}

// Bearing returns the unit viewing direction of a pixel coordinate.
// Division by a zero focal length is a configuration error that must be
// caught upstream with CheckValid.
func (params *Intrinsics) Bearing(pt r2.Point) r3.Vector {
	n := params.NormalizedCoords(pt)
	return r3.Vector{X: n.X, Y: n.Y, Z: 1}.Normalize()
}

// PointToPixel projects a 3D point in the camera frame onto the image plane.
func (params *Intrinsics) PointToPixel(pt r3.Vector) r2.Point {
	return r2.Point{
		X: params.Fx*(pt.X/pt.Z) + params.Ppx,
		Y: params.Fy*(pt.Y/pt.Z) + params.Ppy,
	}
}
