package vision

import (
	"fmt"

	ort "github.com/yalue/onnxruntime_go"

	"github.com/your-org/memoryd/internal/vectormath"
)

// FaceEmbedder extracts 512-dim L2-normalized face embeddings (ArcFace),
// grounded directly on the teacher's internal/vision/embed.go.
type FaceEmbedder struct {
	session      *ort.AdvancedSession
	inputTensor  *ort.Tensor[float32]
	outputTensor *ort.Tensor[float32]
	inputW       int
	inputH       int
	embDim       int
}

func NewFaceEmbedder(modelPath string) (*FaceEmbedder, error) {
	inputW, inputH := 112, 112
	embDim := 512

	inputTensor, err := ort.NewEmptyTensor[float32](ort.NewShape(1, 3, int64(inputH), int64(inputW)))
	if err != nil {
		return nil, fmt.Errorf("create input tensor: %w", err)
	}
	outputTensor, err := ort.NewEmptyTensor[float32](ort.NewShape(1, int64(embDim)))
	if err != nil {
		return nil, fmt.Errorf("create output tensor: %w", err)
	}

	session, err := ort.NewAdvancedSession(modelPath,
		[]string{"input.1"}, []string{"683"},
		[]ort.Value{inputTensor}, []ort.Value{outputTensor}, nil)
	if err != nil {
		return nil, fmt.Errorf("create face embedder session: %w", err)
	}

	return &FaceEmbedder{session: session, inputTensor: inputTensor, outputTensor: outputTensor,
		inputW: inputW, inputH: inputH, embDim: embDim}, nil
}

func (e *FaceEmbedder) Extract(faceData []float32) ([]float32, error) {
	copy(e.inputTensor.GetData(), faceData)
	if err := e.session.Run(); err != nil {
		return nil, fmt.Errorf("run face embedding: %w", err)
	}
	out := make([]float32, e.embDim)
	copy(out, e.outputTensor.GetData())
	return vectormath.Normalize(out), nil
}

func (e *FaceEmbedder) InputSize() (int, int) { return e.inputW, e.inputH }
func (e *FaceEmbedder) EmbeddingDim() int     { return e.embDim }

func (e *FaceEmbedder) Close() {
	if e.session != nil {
		e.session.Destroy()
	}
	if e.inputTensor != nil {
		e.inputTensor.Destroy()
	}
	if e.outputTensor != nil {
		e.outputTensor.Destroy()
	}
}

// BodyEmbedder extracts 2048-dim L2-normalized body re-identification
// embeddings. Same session shape as FaceEmbedder at a different input size
// and output dimension, matching a typical ReID backbone (e.g. OSNet) input
// of 256x128.
type BodyEmbedder struct {
	session      *ort.AdvancedSession
	inputTensor  *ort.Tensor[float32]
	outputTensor *ort.Tensor[float32]
	inputW       int
	inputH       int
	embDim       int
}

func NewBodyEmbedder(modelPath string) (*BodyEmbedder, error) {
	inputW, inputH := 128, 256
	embDim := 2048

	inputTensor, err := ort.NewEmptyTensor[float32](ort.NewShape(1, 3, int64(inputH), int64(inputW)))
	if err != nil {
		return nil, fmt.Errorf("create input tensor: %w", err)
	}
	outputTensor, err := ort.NewEmptyTensor[float32](ort.NewShape(1, int64(embDim)))
	if err != nil {
		return nil, fmt.Errorf("create output tensor: %w", err)
	}

	session, err := ort.NewAdvancedSession(modelPath,
		[]string{"input"}, []string{"output"},
		[]ort.Value{inputTensor}, []ort.Value{outputTensor}, nil)
	if err != nil {
		return nil, fmt.Errorf("create body embedder session: %w", err)
	}

	return &BodyEmbedder{session: session, inputTensor: inputTensor, outputTensor: outputTensor,
		inputW: inputW, inputH: inputH, embDim: embDim}, nil
}

func (e *BodyEmbedder) Extract(bodyData []float32) ([]float32, error) {
	copy(e.inputTensor.GetData(), bodyData)
	if err := e.session.Run(); err != nil {
		return nil, fmt.Errorf("run body embedding: %w", err)
	}
	out := make([]float32, e.embDim)
	copy(out, e.outputTensor.GetData())
	return vectormath.Normalize(out), nil
}

func (e *BodyEmbedder) InputSize() (int, int) { return e.inputW, e.inputH }
func (e *BodyEmbedder) EmbeddingDim() int     { return e.embDim }

func (e *BodyEmbedder) Close() {
	if e.session != nil {
		e.session.Destroy()
	}
	if e.inputTensor != nil {
		e.inputTensor.Destroy()
	}
	if e.outputTensor != nil {
		e.outputTensor.Destroy()
	}
}
