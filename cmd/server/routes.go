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

// API route definitions. Every pipeline stage has its own endpoint so the
// frontend can trigger and re-trigger stages independently; precondition
// rejections map to 409 and never mark a stage failed.
package main

import (
	"encoding/base64"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/h2non/filetype"

	"github.com/YishanCoding/TikTok-Viral-Video-Architect/internal/cloud"
	"github.com/YishanCoding/TikTok-Viral-Video-Architect/internal/core/model"
	"github.com/YishanCoding/TikTok-Viral-Video-Architect/internal/core/orchestrator"
	"github.com/YishanCoding/TikTok-Viral-Video-Architect/internal/core/services"
)

// respondStageError maps orchestrator errors onto HTTP statuses with the
// user-facing message for the body.
func respondStageError(c *gin.Context, err error) {
	var preErr *orchestrator.PreconditionError
	switch {
	case errors.As(err, &preErr):
		c.JSON(http.StatusConflict, gin.H{"error": preErr.Reason})
	case errors.Is(err, orchestrator.ErrStageBusy):
		c.JSON(http.StatusConflict, gin.H{"error": "this stage is already running"})
	case errors.Is(err, orchestrator.ErrSuperseded):
		c.JSON(http.StatusGone, gin.H{"error": "the inputs changed while the stage was running; result discarded"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": cloud.UserMessage(err)})
	}
}

// readAsset decodes one uploaded file into a MediaAsset, sniffing the MIME
// type from content when the browser-supplied one is missing or generic.
func readAsset(file *multipart.FileHeader, withPreview bool) (*model.MediaAsset, error) {
	f, err := file.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, err
	}

	mimeType := file.Header.Get("Content-Type")
	if mimeType == "" || mimeType == "application/octet-stream" {
		if kind, err := filetype.Match(data); err == nil && kind.MIME.Value != "" {
			mimeType = kind.MIME.Value
		}
	}

	asset := &model.MediaAsset{
		ID:       uuid.NewString(),
		Name:     file.Filename,
		MIMEType: mimeType,
		Data:     data,
	}
	if withPreview {
		asset.Preview = "data:" + mimeType + ";base64," + base64.StdEncoding.EncodeToString(data)
	}
	return asset, nil
}

// MediaRouter covers media upload, feature selection and configuration.
func MediaRouter(r *gin.RouterGroup) {
	media := r.Group("/media")
	{
		media.POST("/product-images", func(c *gin.Context) {
			form, err := c.MultipartForm()
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			var assets []*model.MediaAsset
			for _, file := range form.File["files"] {
				asset, err := readAsset(file, true)
				if err != nil {
					c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
					return
				}
				if !strings.HasPrefix(asset.MIMEType, "image/") {
					c.JSON(http.StatusBadRequest, gin.H{"error": "product uploads must be images"})
					return
				}
				assets = append(assets, asset)
			}
			state.orchestrator.AddProductImages(assets...)
			c.JSON(http.StatusOK, state.orchestrator.State())
		})

		media.DELETE("/product-images/:id", func(c *gin.Context) {
			state.orchestrator.RemoveProductImage(c.Param("id"))
			c.JSON(http.StatusOK, state.orchestrator.State())
		})

		media.POST("/reference-video", func(c *gin.Context) {
			file, err := c.FormFile("file")
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			asset, err := readAsset(file, false)
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			if !strings.HasPrefix(asset.MIMEType, "video/") {
				c.JSON(http.StatusBadRequest, gin.H{"error": "reference upload must be a video"})
				return
			}
			state.orchestrator.SetReferenceVideo(asset)
			c.JSON(http.StatusOK, state.orchestrator.State())
		})

		media.DELETE("/reference-video", func(c *gin.Context) {
			state.orchestrator.RemoveReferenceVideo()
			c.JSON(http.StatusOK, state.orchestrator.State())
		})
	}

	r.PUT("/config", func(c *gin.Context) {
		var cfg model.Configuration
		if err := c.ShouldBindJSON(&cfg); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		state.orchestrator.SetConfiguration(cfg)
		c.JSON(http.StatusOK, state.orchestrator.State())
	})

	r.POST("/features/toggle", func(c *gin.Context) {
		var body struct {
			Text string `json:"text" binding:"required"`
		}
		if err := c.ShouldBindJSON(&body); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		state.orchestrator.ToggleFeature(body.Text)
		c.JSON(http.StatusOK, state.orchestrator.State())
	})

	r.GET("/state", func(c *gin.Context) {
		c.JSON(http.StatusOK, state.orchestrator.State())
	})
}

// PipelineRouter exposes one endpoint per generation stage.
func PipelineRouter(r *gin.RouterGroup) {
	pipeline := r.Group("/pipeline")
	{
		pipeline.POST("/analyze", func(c *gin.Context) {
			if err := state.orchestrator.AnalyzeVideo(c.Request.Context()); err != nil {
				respondStageError(c, err)
				return
			}
			c.JSON(http.StatusOK, state.orchestrator.State())
		})

		pipeline.POST("/product-grid", func(c *gin.Context) {
			if err := state.orchestrator.GenerateProductGrid(c.Request.Context()); err != nil {
				respondStageError(c, err)
				return
			}
			c.JSON(http.StatusOK, state.orchestrator.State())
		})

		pipeline.POST("/scripts", func(c *gin.Context) {
			if err := state.orchestrator.GenerateScripts(c.Request.Context()); err != nil {
				respondStageError(c, err)
				return
			}
			c.JSON(http.StatusOK, state.orchestrator.State())
		})

		pipeline.POST("/variants/:variant_id/rows/:row_id/image", func(c *gin.Context) {
			if err := state.orchestrator.GenerateSceneImage(c.Request.Context(), c.Param("variant_id"), c.Param("row_id")); err != nil {
				respondStageError(c, err)
				return
			}
			c.JSON(http.StatusOK, state.orchestrator.State())
		})

		pipeline.POST("/variants/:variant_id/rows/:row_id/regenerate", func(c *gin.Context) {
			if err := state.orchestrator.RegenerateRow(c.Request.Context(), c.Param("variant_id"), c.Param("row_id")); err != nil {
				respondStageError(c, err)
				return
			}
			c.JSON(http.StatusOK, state.orchestrator.State())
		})

		pipeline.PATCH("/variants/:variant_id/rows/:row_id", func(c *gin.Context) {
			var patch orchestrator.RowPatch
			if err := c.ShouldBindJSON(&patch); err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			if err := state.orchestrator.UpdateRow(c.Param("variant_id"), c.Param("row_id"), patch); err != nil {
				respondStageError(c, err)
				return
			}
			c.JSON(http.StatusOK, state.orchestrator.State())
		})

		pipeline.POST("/variants/:variant_id/visuals", func(c *gin.Context) {
			if err := state.orchestrator.GenerateAllVisuals(c.Request.Context(), c.Param("variant_id")); err != nil {
				respondStageError(c, err)
				return
			}
			c.JSON(http.StatusOK, state.orchestrator.State())
		})

		pipeline.POST("/variants/:variant_id/final-grid", func(c *gin.Context) {
			if err := state.orchestrator.ComposeFinalGrid(c.Request.Context(), c.Param("variant_id")); err != nil {
				respondStageError(c, err)
				return
			}
			c.JSON(http.StatusOK, state.orchestrator.State())
		})
	}
}

// HistoryRouter covers saving and restoring campaign snapshots.
func HistoryRouter(r *gin.RouterGroup) {
	hist := r.Group("/history")
	{
		hist.GET("", func(c *gin.Context) {
			c.JSON(http.StatusOK, state.orchestrator.History())
		})

		hist.POST("", func(c *gin.Context) {
			item, err := state.orchestrator.SaveToHistory()
			if err != nil {
				respondStageError(c, err)
				return
			}
			c.JSON(http.StatusOK, item)
		})

		hist.POST("/:id/restore", func(c *gin.Context) {
			if err := state.orchestrator.RestoreHistory(c.Param("id")); err != nil {
				respondStageError(c, err)
				return
			}
			c.JSON(http.StatusOK, state.orchestrator.State())
		})
	}
}

// ExportRouter serves the downloadable artifacts and the copyable script
// text blob.
func ExportRouter(r *gin.RouterGroup) {
	export := r.Group("/export")
	{
		serveArtifact := func(c *gin.Context, artifact *services.Artifact, err error) {
			var contractErr *cloud.ContractError
			if errors.As(err, &contractErr) {
				c.JSON(http.StatusNotFound, gin.H{"error": contractErr.Reason})
				return
			}
			if err != nil {
				respondStageError(c, err)
				return
			}
			c.Header("Content-Disposition", `attachment; filename="`+artifact.Filename+`"`)
			c.Data(http.StatusOK, artifact.MIMEType, artifact.Data)
		}

		export.GET("/product-reference", func(c *gin.Context) {
			s := state.orchestrator.State()
			var b64 string
			if s.Generated != nil {
				b64 = s.Generated.ProductReference
			}
			artifact, err := state.exporter.ImageArtifact(services.ArtifactProductReference, b64, 0)
			serveArtifact(c, artifact, err)
		})

		export.GET("/final-grid", func(c *gin.Context) {
			s := state.orchestrator.State()
			var b64 string
			if s.Generated != nil {
				b64 = s.Generated.FinalGrid
			}
			artifact, err := state.exporter.ImageArtifact(services.ArtifactFinalGrid, b64, 0)
			serveArtifact(c, artifact, err)
		})

		export.GET("/variants/:variant_id/rows/:row_id/image", func(c *gin.Context) {
			s := state.orchestrator.State()
			if s.Generated == nil {
				c.JSON(http.StatusNotFound, gin.H{"error": "no generated content"})
				return
			}
			for _, variant := range s.Generated.Variants {
				if variant.ID != c.Param("variant_id") {
					continue
				}
				for i, row := range variant.Script {
					if row.ID == c.Param("row_id") {
						artifact, err := state.exporter.ImageArtifact(services.ArtifactSceneImage, row.GeneratedVisual, i+1)
						serveArtifact(c, artifact, err)
						return
					}
				}
			}
			c.JSON(http.StatusNotFound, gin.H{"error": "script row not found"})
		})

		export.GET("/variants/:variant_id/script", func(c *gin.Context) {
			s := state.orchestrator.State()
			if s.Generated == nil {
				c.JSON(http.StatusNotFound, gin.H{"error": "no generated content"})
				return
			}
			for _, variant := range s.Generated.Variants {
				if variant.ID == c.Param("variant_id") {
					c.String(http.StatusOK, state.exporter.ScriptText(variant))
					return
				}
			}
			c.JSON(http.StatusNotFound, gin.H{"error": "variant not found"})
		})
	}
}

// Dashboard exposes a small status endpoint for operational checks.
func Dashboard(r *gin.RouterGroup) {
	stats := r.Group("/stats")
	{
		stats.GET("", func(c *gin.Context) {
			s := state.orchestrator.State()
			variants := 0
			if s.Generated != nil {
				variants = len(s.Generated.Variants)
			}
			c.JSON(http.StatusOK, gin.H{
				"productImages":  len(s.ProductImages),
				"hasVideo":       s.ReferenceVideo != nil,
				"hasAnalysis":    s.VideoAnalysis != nil,
				"variants":       variants,
				"historyEntries": len(state.orchestrator.History()),
				"busy": gin.H{
					"analyzing":   s.IsAnalyzing,
					"productGrid": s.IsGeneratingProductGrid,
					"scripts":     s.IsGeneratingScripts,
					"visuals":     s.IsGeneratingVisuals,
					"finalGrid":   s.IsComposingFinalGrid,
				},
			})
		})
	}
}
