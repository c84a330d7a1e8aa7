package vision

import (
	"fmt"
	"math"
	"strings"

	"cloud.google.com/go/vision/v2/apiv1/visionpb"

	"github.com/tessling/optic-api/internal/domain"
)

// labelDescriptions is a small knowledge base of richer descriptions for
// common labels. Unknown labels simply get no description.
var labelDescriptions = map[string]string{
	"cat":    "A domestic feline animal known for independence and agility",
	"dog":    "A domesticated carnivore known as a faithful companion",
	"tree":   "A woody perennial plant with a trunk and branches",
	"person": "A human being",
	"car":    "A motor vehicle designed for transportation",
	"book":   "A bound set of printed pages",
	"plant":  "A living organism that typically grows in soil",
	"flower": "The reproductive part of a flowering plant",
}

// normalizeResponse maps the raw API response onto the domain Annotation
// shape: confidences rounded to two decimals, colors as hex with a whole
// pixel percentage, and the web entity list truncated to five.
func normalizeResponse(res *visionpb.AnnotateImageResponse) *domain.Annotation {
	ann := &domain.Annotation{
		Labels:      make([]domain.Label, 0, len(res.GetLabelAnnotations())),
		Objects:     make([]domain.Object, 0, len(res.GetLocalizedObjectAnnotations())),
		Colors:      []domain.Color{},
		Landmarks:   make([]domain.Landmark, 0, len(res.GetLandmarkAnnotations())),
		WebEntities: []domain.WebEntity{},
		Faces:       len(res.GetFaceAnnotations()),
		Text:        res.GetFullTextAnnotation().GetText(),
		SafeSearch:  normalizeSafeSearch(res.GetSafeSearchAnnotation()),
	}

	for _, label := range res.GetLabelAnnotations() {
		ann.Labels = append(ann.Labels, domain.Label{
			Name:        label.GetDescription(),
			Confidence:  round2(label.GetScore()),
			Description: labelDescriptions[strings.ToLower(label.GetDescription())],
		})
	}

	for _, obj := range res.GetLocalizedObjectAnnotations() {
		ann.Objects = append(ann.Objects, domain.Object{
			Name:        obj.GetName(),
			Confidence:  round2(obj.GetScore()),
			BoundingBox: normalizeBoundingBox(obj.GetBoundingPoly()),
		})
	}

	ann.Colors = extractColors(res.GetImagePropertiesAnnotation())

	for _, landmark := range res.GetLandmarkAnnotations() {
		ann.Landmarks = append(ann.Landmarks, domain.Landmark{
			Name:       landmark.GetDescription(),
			Confidence: round2(landmark.GetScore()),
		})
	}

	entities := res.GetWebDetection().GetWebEntities()
	if len(entities) > 5 {
		entities = entities[:5]
	}
	for _, entity := range entities {
		ann.WebEntities = append(ann.WebEntities, domain.WebEntity{
			Description: entity.GetDescription(),
			Score:       round2(entity.GetScore()),
		})
	}

	return ann
}

// extractColors keeps the five most dominant colors.
func extractColors(props *visionpb.ImageProperties) []domain.Color {
	colors := props.GetDominantColors().GetColors()
	if len(colors) > 5 {
		colors = colors[:5]
	}

	out := make([]domain.Color, 0, len(colors))
	for _, c := range colors {
		rgb := c.GetColor()
		out = append(out, domain.Color{
			Hex: fmt.Sprintf("#%02X%02X%02X",
				int(rgb.GetRed()), int(rgb.GetGreen()), int(rgb.GetBlue())),
			PixelFraction: int(math.Round(float64(c.GetPixelFraction()) * 100)),
		})
	}
	return out
}

func normalizeBoundingBox(poly *visionpb.BoundingPoly) []domain.Vertex {
	vertices := poly.GetNormalizedVertices()
	if len(vertices) == 0 {
		return nil
	}

	out := make([]domain.Vertex, 0, len(vertices))
	for _, v := range vertices {
		out = append(out, domain.Vertex{X: float64(v.GetX()), Y: float64(v.GetY())})
	}
	return out
}

// normalizeSafeSearch maps likelihood enums to their names, defaulting
// to UNKNOWN when the backend omitted the annotation.
func normalizeSafeSearch(ss *visionpb.SafeSearchAnnotation) domain.SafeSearch {
	if ss == nil {
		return domain.SafeSearch{
			Adult: "UNKNOWN", Spoof: "UNKNOWN", Medical: "UNKNOWN",
			Violence: "UNKNOWN", Racy: "UNKNOWN",
		}
	}
	return domain.SafeSearch{
		Adult:    ss.GetAdult().String(),
		Spoof:    ss.GetSpoof().String(),
		Medical:  ss.GetMedical().String(),
		Violence: ss.GetViolence().String(),
		Racy:     ss.GetRacy().String(),
	}
}

// round2 rounds a backend confidence score to two decimal places.
func round2(score float32) float64 {
	return math.Round(float64(score)*100) / 100
}
