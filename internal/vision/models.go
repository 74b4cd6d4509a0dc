// Package vision wraps the ONNX Runtime sessions used by the clip scanner
// and the enrollment registry: a person-region detector plus 512-dim face
// and 2048-dim body embedding extractors.
package vision

import (
	"fmt"
	"image"
	_ "image/jpeg"
	"path/filepath"

	ort "github.com/yalue/onnxruntime_go"
)

// Models bundles the three ONNX sessions a clip scan needs.
type Models struct {
	Detector *PersonDetector
	Face     *FaceEmbedder
	Body     *BodyEmbedder
}

// Load initializes the ONNX runtime environment (once per process) and the
// three models out of modelsDir, matching the file names the teacher's
// worker expects (det_10g.onnx, w600k_r50.onnx) plus a body re-id model.
func Load(modelsDir string, detectionThreshold float32) (*Models, error) {
	if err := ort.InitializeEnvironment(); err != nil {
		return nil, fmt.Errorf("initialize onnxruntime: %w", err)
	}

	det, err := NewPersonDetector(filepath.Join(modelsDir, "det_10g.onnx"), detectionThreshold, nil)
	if err != nil {
		return nil, fmt.Errorf("load person detector: %w", err)
	}
	face, err := NewFaceEmbedder(filepath.Join(modelsDir, "w600k_r50.onnx"))
	if err != nil {
		det.Close()
		return nil, fmt.Errorf("load face embedder: %w", err)
	}
	body, err := NewBodyEmbedder(filepath.Join(modelsDir, "osnet_x1_0.onnx"))
	if err != nil {
		det.Close()
		face.Close()
		return nil, fmt.Errorf("load body embedder: %w", err)
	}

	return &Models{Detector: det, Face: face, Body: body}, nil
}

func (m *Models) Close() {
	if m.Detector != nil {
		m.Detector.Close()
	}
	if m.Face != nil {
		m.Face.Close()
	}
	if m.Body != nil {
		m.Body.Close()
	}
}

// DetectPersons runs the region detector over a decoded frame and returns
// raw boxes; caller applies the confidence/size thresholds from spec §4.B.
func (m *Models) DetectPersons(img image.Image) ([]PersonBox, error) {
	w, h := m.Detector.InputSize()
	data := preprocessForDetection(img, w, h)
	b := img.Bounds()
	return m.Detector.Detect(data, b.Dx(), b.Dy())
}

// ExtractFace crops bbox with light padding and returns a 512-dim face
// embedding, or nil if the crop is degenerate.
func (m *Models) ExtractFace(img image.Image, bbox [4]float32) ([]float32, error) {
	crop := cropRegion(img, bbox, 0.1)
	if crop == nil {
		return nil, fmt.Errorf("degenerate face crop")
	}
	w, h := m.Face.InputSize()
	data := preprocessForEmbedding(crop, w, h)
	return m.Face.Extract(data)
}

// ExtractBody crops the full person bbox and returns a 2048-dim body
// embedding.
func (m *Models) ExtractBody(img image.Image, bbox [4]float32) ([]float32, error) {
	crop := cropRegion(img, bbox, 0.05)
	if crop == nil {
		return nil, fmt.Errorf("degenerate body crop")
	}
	w, h := m.Body.InputSize()
	data := preprocessForEmbedding(crop, w, h)
	return m.Body.Extract(data)
}
