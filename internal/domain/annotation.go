package domain

// Annotation is the normalized result of a recognition backend call.
// The orchestration layer treats it as an opaque structured value; only
// TopLabel is interpreted, for history summaries.
type Annotation struct {
	Labels      []Label     `json:"labels"`
	Objects     []Object    `json:"objects"`
	Colors      []Color     `json:"colors"`
	Faces       int         `json:"faces"`
	Landmarks   []Landmark  `json:"landmarks"`
	Text        string      `json:"text"`
	SafeSearch  SafeSearch  `json:"safeSearch"`
	WebEntities []WebEntity `json:"webEntities"`
}

// Label is a single classification with its confidence score.
type Label struct {
	Name        string  `json:"name"`
	Confidence  float64 `json:"confidence"`
	Description string  `json:"description,omitempty"`
}

// Object is a localized object detection with its bounding box.
type Object struct {
	Name        string   `json:"name"`
	Confidence  float64  `json:"confidence"`
	BoundingBox []Vertex `json:"boundingBox,omitempty"`
}

// Vertex is a normalized bounding box corner in [0,1] image coordinates.
type Vertex struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Color is a dominant image color and the fraction of pixels it covers,
// expressed as a whole percentage.
type Color struct {
	Hex           string `json:"hex"`
	PixelFraction int    `json:"pixelFraction"`
}

// Landmark is a recognized landmark with its confidence score.
type Landmark struct {
	Name       string  `json:"name"`
	Confidence float64 `json:"confidence"`
}

// SafeSearch carries the backend's content safety likelihood verdicts.
type SafeSearch struct {
	Adult    string `json:"adult"`
	Spoof    string `json:"spoof"`
	Medical  string `json:"medical"`
	Violence string `json:"violence"`
	Racy     string `json:"racy"`
}

// WebEntity is a web-derived entity inferred from the image.
type WebEntity struct {
	Description string  `json:"description"`
	Score       float64 `json:"score"`
}

// TopLabel returns the highest-ranked label, or nil if none were detected.
// The backend returns labels ordered by confidence, so this is the first one.
func (a *Annotation) TopLabel() *Label {
	if a == nil || len(a.Labels) == 0 {
		return nil
	}
	return &a.Labels[0]
}
