// Package model - Descriptors for bottom-up pose estimation models.
package model

import "github.com/nvr-ai/go-pose/models/openpose"

// Family is the keypoint convention a model was trained on.
type Family string

const (
	// ModelFamilyCOCO is the 18-keypoint COCO convention with a neck joint.
	ModelFamilyCOCO Family = "coco"
)

// Name is the unique identifier of a model.
type Name string

const (
	// ModelNameOpenPose is the OpenVINO human-pose-estimation-0001 network.
	ModelNameOpenPose Name = "openpose"
	// ModelNameLightweightOpenPose is the MobileNet based lightweight OpenPose
	// export.
	ModelNameLightweightOpenPose Name = "lightweight-openpose"
)

// BaseModel describes a model's outputs and their geometry.
type BaseModel struct {
	Name   Name
	Family Family
	// Outputs names the heatmap tensor first and the PAF tensor second.
	Outputs []string
	// Stride is the network's input-to-feature-map downscale.
	Stride int
	// UpsampleRatio is the factor the caller resizes feature maps by before
	// decoding. 1 when the maps are decoded at network resolution.
	UpsampleRatio float32
}

// Model is a pose model the decoder can interpret.
type Model interface {
	Options() BaseModel
	Topology() openpose.Topology
	DecoderConfig() openpose.Config
}

// NewModelArgs is the arguments for creating a new model.
type NewModelArgs struct {
	Name    Name     `json:"name" yaml:"name" mapstructure:"name" validate:"required"`
	Outputs []string `json:"outputs" yaml:"outputs" mapstructure:"outputs" validate:"omitempty,len=2"`
}
