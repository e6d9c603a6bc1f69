// Copyright 2025 YishanCoding
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     https://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package services holds the artifact export surface: turning generated
// content into downloadable files and copyable text blobs.
package services

import (
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/YishanCoding/TikTok-Viral-Video-Architect/internal/cloud"
	"github.com/YishanCoding/TikTok-Viral-Video-Architect/internal/core/model"
)

// ArtifactKind names a downloadable artifact.
type ArtifactKind string

const (
	ArtifactProductReference ArtifactKind = "product-reference"
	ArtifactFinalGrid        ArtifactKind = "final-grid"
	ArtifactSceneImage       ArtifactKind = "scene-image"
)

// Fixed download filenames per artifact kind.
var artifactFilenames = map[ArtifactKind]string{
	ArtifactProductReference: "product_reference_grid.jpg",
	ArtifactFinalGrid:        "final_storyboard_grid.jpg",
	ArtifactSceneImage:       "scene_%02d.jpg",
}

// Artifact is one exportable file: decoded image bytes plus the fixed
// filename and MIME type to offer for download.
type Artifact struct {
	Filename string
	MIMEType string
	Data     []byte
}

// Exporter renders generated content into downloadable artifacts.
type Exporter struct{}

func NewExporter() *Exporter {
	return &Exporter{}
}

// ImageArtifact decodes one base64 image into a downloadable artifact. The
// scene-image kind takes the one-based scene number for its filename.
func (e *Exporter) ImageArtifact(kind ArtifactKind, b64 string, sceneNumber int) (*Artifact, error) {
	if b64 == "" {
		return nil, cloud.NewContractError("no %s image available to export", kind)
	}
	data, err := base64.StdEncoding.DecodeString(strip(b64))
	if err != nil {
		return nil, &cloud.LocalError{Op: "decode-artifact", Err: err}
	}
	name := artifactFilenames[kind]
	if kind == ArtifactSceneImage {
		name = fmt.Sprintf(name, sceneNumber)
	}
	return &Artifact{Filename: name, MIMEType: "image/jpeg", Data: data}, nil
}

// ScriptText renders one variant as the copyable text blob: the motion
// prompt followed by one line per scene.
func (e *Exporter) ScriptText(variant *model.ScriptVariant) string {
	if variant == nil {
		return ""
	}
	var b strings.Builder
	if variant.MotionPrompt != "" {
		b.WriteString(variant.MotionPrompt)
		b.WriteString("\n\n")
	}
	lines := make([]string, 0, len(variant.Script))
	for _, row := range variant.Script {
		lines = append(lines, fmt.Sprintf("[%s] Scene: %s | Audio: %s", row.Timeframe, row.Visual, row.Audio))
	}
	b.WriteString(strings.Join(lines, "\n"))
	return b.String()
}

// strip removes a data-URL prefix if one is present.
func strip(b64 string) string {
	if idx := strings.Index(b64, ";base64,"); idx >= 0 {
		return b64[idx+len(";base64,"):]
	}
	return b64
}
