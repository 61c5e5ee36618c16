package catalog

import "github.com/hohoca/brachyplan/internal/types"

func protrusion(max float64) types.ParameterRange {
	return types.ParameterRange{
		Key: types.ParamProtrusionLength, Label: "Protrusion", Unit: "mm",
		Min: 0, Max: max, Step: 1, Default: 0,
	}
}

func builtinModels() []types.ModelInfo {
	return []types.ModelInfo{
		{
			ID: "model1", Name: "Vaginal cylinder", Type: types.ModelTypeCylinder,
			Description: "Single-channel vaginal cylinder",
			Parameters: []types.ParameterRange{
				{Key: "diameter", Label: "Diameter", Unit: "mm", Min: 20, Max: 40, Step: 5, Default: 30},
				{Key: "length", Label: "Length", Unit: "mm", Min: 30, Max: 120, Step: 10, Default: 60},
				protrusion(30),
			},
		},
		{
			ID: "model2", Name: "Intrauterine tandem", Type: types.ModelTypeTandem,
			Description: "Curved intrauterine tube",
			Parameters: []types.ParameterRange{
				{Key: "angle", Label: "Curvature", Unit: "deg", Min: 0, Max: 60, Step: 15, Default: 30},
				{Key: "length", Label: "Length", Unit: "mm", Min: 20, Max: 80, Step: 10, Default: 60},
				protrusion(20),
			},
		},
		{
			ID: "model3", Name: "Ring", Type: types.ModelTypeRing,
			Description: "Ring applicator",
			Parameters: []types.ParameterRange{
				{Key: "diameter", Label: "Ring diameter", Unit: "mm", Min: 26, Max: 34, Step: 4, Default: 30},
				{Key: "angle", Label: "Ring angle", Unit: "deg", Min: 45, Max: 90, Step: 15, Default: 60},
			},
		},
		{
			ID: "model4", Name: "Ovoid", Type: types.ModelTypeOvoid,
			Description: "Fletcher style ovoid",
			Parameters: []types.ParameterRange{
				{Key: "diameter", Label: "Cap diameter", Unit: "mm", Min: 20, Max: 30, Step: 5, Default: 25},
				protrusion(10),
			},
		},
		{
			ID: "model5", Name: "Interstitial needle", Type: types.ModelTypeNeedle,
			Description: "Rigid interstitial needle",
			Parameters: []types.ParameterRange{
				{Key: "length", Label: "Needle length", Unit: "mm", Min: 100, Max: 240, Step: 20, Default: 200},
				protrusion(50),
			},
		},
		{
			ID: "model6", Name: "Multi-channel cylinder", Type: types.ModelTypeMultiChannel, SubTubes: types.MaxSubTubes,
			Description: "Cylinder with a centre tube and five peripheral sub-tubes",
			Parameters: []types.ParameterRange{
				{Key: "diameter", Label: "Diameter", Unit: "mm", Min: 25, Max: 40, Step: 5, Default: 30},
				protrusion(30),
				{Key: types.ParamCenterTubeProtrusion, Label: "Centre tube protrusion", Unit: "mm", Min: 0, Max: 20, Step: 1, Default: 0},
			},
		},
	}
}
