package vision

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	vision "cloud.google.com/go/vision/v2/apiv1"
	"cloud.google.com/go/vision/v2/apiv1/visionpb"
	"google.golang.org/api/option"

	"github.com/tessling/optic-api/internal/config"
	"github.com/tessling/optic-api/internal/domain"
)

// BlobReader fetches stored image bytes by their location handle.
type BlobReader interface {
	Get(ctx context.Context, location string) ([]byte, error)
}

// Annotator implements image recognition using the Cloud Vision API.
type Annotator struct {
	logger *slog.Logger
	config config.VisionConfig
	client *vision.ImageAnnotatorClient
	blobs  BlobReader
}

// New creates an Annotator with the provided dependencies. When the
// config names no credentials file, the client falls back to application
// default credentials.
func New(ctx context.Context, logger *slog.Logger, cfg config.VisionConfig, blobs BlobReader) (*Annotator, error) {
	if logger == nil {
		return nil, errors.New("logger cannot be nil")
	}
	if blobs == nil {
		return nil, fmt.Errorf("%w: blob reader cannot be nil", ErrInvalidConfig)
	}

	if cfg.MaxLabels <= 0 {
		cfg.MaxLabels = 10
	}
	if cfg.MaxObjects <= 0 {
		cfg.MaxObjects = 10
	}

	var opts []option.ClientOption
	if cfg.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}

	client, err := vision.NewImageAnnotatorClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create vision client: %v", ErrInvalidConfig, err)
	}

	return &Annotator{
		logger: logger.With("component", "vision_annotator"),
		config: cfg,
		client: client,
		blobs:  blobs,
	}, nil
}

// Close releases the underlying API client.
func (a *Annotator) Close() error {
	return a.client.Close()
}

// Annotate runs the full feature set against the blob at the given
// location and returns the normalized result.
func (a *Annotator) Annotate(ctx context.Context, location string) (*domain.Annotation, error) {
	data, err := a.blobs.Get(ctx, location)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to load image bytes: %v", ErrRecognitionFailed, err)
	}

	a.logger.Debug("annotating image", "location", location, "bytes", len(data))

	req := &visionpb.AnnotateImageRequest{
		Image:    &visionpb.Image{Content: data},
		Features: a.features(),
	}

	batch, err := a.client.BatchAnnotateImages(ctx, &visionpb.BatchAnnotateImagesRequest{
		Requests: []*visionpb.AnnotateImageRequest{req},
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRecognitionFailed, err)
	}
	res := batch.GetResponses()[0]
	if res.Error != nil {
		return nil, fmt.Errorf("%w: %s", ErrRecognitionFailed, res.Error.GetMessage())
	}

	ann := normalizeResponse(res)
	a.logger.Debug("annotation complete",
		"location", location,
		"labels", len(ann.Labels),
		"objects", len(ann.Objects))
	return ann, nil
}

func (a *Annotator) features() []*visionpb.Feature {
	return []*visionpb.Feature{
		{Type: visionpb.Feature_LABEL_DETECTION, MaxResults: int32(a.config.MaxLabels)},
		{Type: visionpb.Feature_OBJECT_LOCALIZATION, MaxResults: int32(a.config.MaxObjects)},
		{Type: visionpb.Feature_IMAGE_PROPERTIES},
		{Type: visionpb.Feature_FACE_DETECTION, MaxResults: 5},
		{Type: visionpb.Feature_TEXT_DETECTION},
		{Type: visionpb.Feature_WEB_DETECTION},
		{Type: visionpb.Feature_SAFE_SEARCH_DETECTION},
		{Type: visionpb.Feature_LANDMARK_DETECTION},
	}
}
