package domain

import "sort"

// ModelFamily groups models that share the same input mapping.
type ModelFamily string

const (
	// ModelFamilyImage covers generic image-to-image models driven by a single prompt.
	ModelFamilyImage ModelFamily = "image"
	// ModelFamilyPromptPair covers edit models driven by a source/target prompt pair.
	ModelFamilyPromptPair ModelFamily = "prompt_pair"
	// ModelFamilyVideo covers image-to-video models seeded with a start frame.
	ModelFamilyVideo ModelFamily = "video"
)

// DefaultModelID is used when a submission does not name a model.
const DefaultModelID = "enhance"

// ModelTemplate describes how to invoke one hosted model.
type ModelTemplate struct {
	ID            string
	Label         string
	Family        ModelFamily
	Version       string
	defaultParams map[string]any
}

// DefaultParams returns a fresh copy of the template defaults so callers can
// merge into it freely.
func (t ModelTemplate) DefaultParams() map[string]any {
	out := make(map[string]any, len(t.defaultParams))
	for k, v := range t.defaultParams {
		out[k] = v
	}
	return out
}

var modelTemplates = map[string]ModelTemplate{
	"enhance": {
		ID:      "enhance",
		Label:   "Stability AI SDXL (Best Overall)",
		Family:  ModelFamilyImage,
		Version: "8beff3369e81422112d93b89ca01426147de542cd4684c244b673b105188fe5f",
		defaultParams: map[string]any{
			"image_strength":      0.35,
			"guidance_scale":      7.5,
			"num_inference_steps": 25,
			"negative_prompt":     "blur, pixelated, low quality, distorted",
		},
	},
	"openjourney": {
		ID:      "openjourney",
		Label:   "OpenJourney v4 (Artistic Enhancement)",
		Family:  ModelFamilyImage,
		Version: "9ca13f02927c5ef346f29e6917114de0d5a2c4b12c14ce674b73ed9609bd0f4d",
		defaultParams: map[string]any{
			"prompt_strength":     0.8,
			"num_inference_steps": 30,
			"guidance_scale":      7.5,
			"negative_prompt":     "blur, pixelated, low quality, distorted",
		},
	},
	"deepfloyd": {
		ID:      "deepfloyd",
		Label:   "DeepFloyd IF (High Detail)",
		Family:  ModelFamilyImage,
		Version: "2b017d9b67edd2ee1401238df49d75da53c523f36e363881e057f5dc3ed3c5b2",
		defaultParams: map[string]any{
			"num_inference_steps": 50,
			"guidance_scale":      7.5,
			"negative_prompt":     "low quality, bad quality, blurry",
		},
	},
	"masactrl": {
		ID:      "masactrl",
		Label:   "MasaCtrl (Best for Consistent Edits)",
		Family:  ModelFamilyPromptPair,
		Version: "4e86d80ab64a8395e7fd327d34fe85d240a3d9e8706b7144864ba981eba3dfa6",
		defaultParams: map[string]any{
			"source_prompt":       "a photo",
			"target_prompt":       "a photo",
			"guidance_scale":      7.5,
			"num_inference_steps": 30,
			"seed":                -1,
		},
	},
	"kling": {
		ID:      "kling",
		Label:   "Kling v1.6 (Video Generation)",
		Family:  ModelFamilyVideo,
		Version: "kwaivgi/kling-v1.6-standard",
		defaultParams: map[string]any{
			"prompt":          "",
			"duration":        5,
			"cfg_scale":       0.5,
			"start_image":     "a photo",
			"negative_prompt": "low quality, bad quality, blurry",
		},
	},
}

// LookupModel returns the template registered under id.
func LookupModel(id string) (ModelTemplate, bool) {
	t, ok := modelTemplates[id]
	return t, ok
}

// Models lists every registered template ordered by id.
func Models() []ModelTemplate {
	out := make([]ModelTemplate, 0, len(modelTemplates))
	for _, t := range modelTemplates {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
