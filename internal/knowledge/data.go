package knowledge

import "plantcare/internal/types"

// builtinConditions is the shipped catalog. Task order matters: the first
// task of each entry is the urgent one scheduled an hour after diagnosis;
// the rest are staggered two days apart.
var builtinConditions = []types.Condition{
	{
		Name:        types.HealthyConditionName,
		Kind:        types.KindHealthy,
		Description: "No disease or pest activity detected.",
		PreventionTips: []string{
			"Keep a consistent watering schedule.",
			"Inspect leaf undersides weekly.",
		},
	},
	{
		Name:        "Ladybug (Beneficial)",
		Kind:        types.KindBeneficial,
		Description: "Ladybugs prey on aphids and other soft-bodied pests.",
		PreventionTips: []string{
			"Avoid broad-spectrum insecticides while ladybugs are present.",
		},
	},
	{
		Name:        "Hoverfly (Beneficial)",
		Kind:        types.KindBeneficial,
		Description: "Hoverfly larvae consume aphids; adults pollinate.",
	},
	{
		Name:        "Aphids (Infested)",
		Kind:        types.KindPest,
		Description: "Colonies of small sap-sucking insects on shoots and leaf undersides.",
		PreventionTips: []string{
			"Encourage ladybugs and hoverflies.",
			"Avoid over-fertilizing with nitrogen.",
		},
		TreatmentTips: []string{
			"Act quickly; colonies double within days.",
		},
		Tasks: []types.TreatmentTask{
			{
				Name:                 "Spray neem oil solution",
				Description:          "Coat infested shoots and leaf undersides with diluted neem oil.",
				ScheduleIntervalDays: 3,
				Materials:            []string{"Neem oil", "Sprayer", "Mild liquid soap"},
				Instructions: []string{
					"Mix 5 ml neem oil and 2 ml soap per liter of water.",
					"Spray in the evening to avoid leaf burn.",
				},
			},
			{
				Name:        "Remove heavily infested shoots",
				Description: "Prune and bag shoots where colonies are dense.",
				Materials:   []string{"Pruning shears", "Disposal bag"},
				Instructions: []string{
					"Cut just above a healthy node.",
					"Do not compost removed material.",
				},
			},
			{
				Name:                 "Apply insecticidal soap",
				Description:          "Follow-up contact treatment for surviving colonies.",
				ScheduleIntervalDays: 5,
				Materials:            []string{"Insecticidal soap"},
				Instructions: []string{
					"Spray until leaves are wet on both sides.",
				},
			},
		},
	},
	{
		Name:        "Whiteflies (Infested)",
		Kind:        types.KindPest,
		Description: "Clouds of tiny white insects on leaf undersides; honeydew residue.",
		TreatmentTips: []string{
			"Yellow sticky traps knock down adults while sprays handle nymphs.",
		},
		Tasks: []types.TreatmentTask{
			{
				Name:                 "Hang yellow sticky traps",
				Description:          "Trap adult whiteflies near the canopy.",
				ScheduleIntervalDays: 7,
				Materials:            []string{"Yellow sticky traps", "Stakes"},
				Instructions: []string{
					"Place traps at canopy height, one per plant.",
				},
			},
			{
				Name:                 "Apply horticultural oil",
				Description:          "Smother nymphs on leaf undersides.",
				ScheduleIntervalDays: 4,
				Materials:            []string{"Horticultural oil", "Sprayer"},
				Instructions: []string{
					"Target leaf undersides where nymphs feed.",
				},
			},
		},
	},
	{
		Name:        "Fruit Borer (Infested)",
		Kind:        types.KindPest,
		Description: "Caterpillar larvae boring into developing fruit.",
		Tasks: []types.TreatmentTask{
			{
				Name:        "Remove bored fruit",
				Description: "Collect and destroy all fruit with entry holes.",
				Materials:   []string{"Disposal bag"},
				Instructions: []string{
					"Check fruit clusters daily for fresh entry holes.",
					"Destroy collected fruit away from the plot.",
				},
			},
			{
				Name:                 "Apply Bt spray",
				Description:          "Bacillus thuringiensis targets young larvae before they enter fruit.",
				ScheduleIntervalDays: 7,
				Materials:            []string{"Bt concentrate", "Sprayer"},
				Instructions: []string{
					"Spray at dusk; Bt degrades in sunlight.",
				},
			},
		},
	},
	{
		Name:        "Leaf Spot (Diseased)",
		Kind:        types.KindDisease,
		Description: "Dark circular lesions with yellow halos spreading across foliage.",
		PreventionTips: []string{
			"Water at the base; wet foliage spreads spores.",
		},
		Tasks: []types.TreatmentTask{
			{
				Name:        "Remove spotted leaves",
				Description: "Strip and destroy all leaves showing lesions.",
				Materials:   []string{"Pruning shears", "Disposal bag"},
				Instructions: []string{
					"Disinfect shears between cuts.",
				},
			},
			{
				Name:                 "Apply copper fungicide",
				Description:          "Protect remaining foliage from spore spread.",
				ScheduleIntervalDays: 7,
				Materials:            []string{"Copper fungicide", "Sprayer"},
				Instructions: []string{
					"Cover both leaf surfaces until runoff.",
				},
			},
		},
	},
	{
		Name:        "Early Blight (Diseased)",
		Kind:        types.KindDisease,
		Description: "Concentric ring lesions starting on lower leaves, moving upward.",
		TreatmentTips: []string{
			"Lower-leaf removal slows upward spread significantly.",
		},
		Tasks: []types.TreatmentTask{
			{
				Name:        "Remove lower infected leaves",
				Description: "Strip infected lower foliage to slow upward spread.",
				Materials:   []string{"Pruning shears", "Disposal bag"},
				Instructions: []string{
					"Remove leaves up to the first healthy truss.",
				},
			},
			{
				Name:                 "Apply chlorothalonil fungicide",
				Description:          "Protectant spray on remaining foliage.",
				ScheduleIntervalDays: 7,
				Materials:            []string{"Chlorothalonil", "Sprayer", "Gloves"},
				Instructions: []string{
					"Repeat after heavy rain.",
				},
			},
			{
				Name:        "Mulch soil surface",
				Description: "Stop rain splash carrying spores from soil to leaves.",
				Materials:   []string{"Straw mulch"},
				Instructions: []string{
					"Lay 5 cm of mulch around the stem, clear of the stem itself.",
				},
			},
		},
	},
	{
		Name:        "Powdery Mildew (Diseased)",
		Kind:        types.KindDisease,
		Description: "White powdery fungal growth on leaf surfaces.",
		Tasks: []types.TreatmentTask{
			{
				Name:                 "Spray potassium bicarbonate",
				Description:          "Contact treatment that disrupts the surface mycelium.",
				ScheduleIntervalDays: 5,
				Materials:            []string{"Potassium bicarbonate", "Sprayer"},
				Instructions: []string{
					"Mix 5 g per liter and spray affected leaves.",
				},
			},
			{
				Name:        "Improve air circulation",
				Description: "Thin dense growth so foliage dries quickly.",
				Materials:   []string{"Pruning shears"},
				Instructions: []string{
					"Remove crossing branches and crowded interior growth.",
				},
			},
		},
	},
	{
		Name:        "Mosaic Virus (Diseased)",
		Kind:        types.KindDisease,
		Description: "Mottled yellow-green leaf pattern with distorted growth. No cure.",
		TreatmentTips: []string{
			"Containment only: infected plants cannot be cured.",
		},
		Tasks: []types.TreatmentTask{
			{
				Name:        "Remove infected plants",
				Description: "Rogue out infected individuals to protect neighbors.",
				Materials:   []string{"Disposal bag", "Gloves"},
				Instructions: []string{
					"Pull the whole plant including roots.",
					"Wash hands and tools before touching healthy plants.",
				},
			},
			{
				Name:                 "Apply aphid control",
				Description:          "Aphids vector the virus; suppress them on surviving plants.",
				ScheduleIntervalDays: 5,
				Materials:            []string{"Insecticidal soap", "Sprayer"},
				Instructions: []string{
					"Treat all neighboring plants, not only symptomatic ones.",
				},
			},
		},
	},
}
