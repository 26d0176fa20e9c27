package species

// Built-in parameter sets for the reference vector/predator pairing.
// Values follow published Aedes aegypti and Toxorhynchites life tables.

// AedesAegypti is the vector species: fast development, high fecundity,
// larval stages vulnerable to predation.
func AedesAegypti() Params {
	return Params{
		ID:    "aedes_aegypti",
		Genus: "aedes",
		Stages: []Stage{
			{Name: "egg", MinDays: 2, MaxDays: 3, Survival: 0.75},
			{Name: "larva_l1", MinDays: 1, MaxDays: 2, Survival: 0.82, Vulnerable: true},
			{Name: "larva_l2", MinDays: 1, MaxDays: 2, Survival: 0.85, Vulnerable: true},
			{Name: "larva_l3", MinDays: 2, MaxDays: 3, Survival: 0.87, Vulnerable: true},
			{Name: "larva_l4", MinDays: 2, MaxDays: 3, Survival: 0.80, Vulnerable: true},
			{Name: "pupa", MinDays: 2, MaxDays: 3, Survival: 0.90},
			{Name: "adult_female", MinDays: 14, MaxDays: 30, Survival: 0.95, DailySurvival: true},
		},
		Reproduction: Reproduction{
			EggsPerBatchMin:    80,
			EggsPerBatchMax:    150,
			OvipositionEvents:  3,
			MinReproductionAge: 3,
		},
		Sensitivity: Sensitivity{
			OptTempMin:  25,
			OptTempMax:  30,
			OptHumidity: 70,
		},
		FemaleRatio:  0.5,
		MinViablePop: 50,
	}
}

// Toxorhynchites is the predator species: its larvae hunt other mosquito
// larvae; adults are nectar feeders and harmless.
func Toxorhynchites() Params {
	return Params{
		ID:    "toxorhynchites",
		Genus: "toxorhynchites",
		Stages: []Stage{
			{Name: "egg", MinDays: 2, MaxDays: 4, Survival: 0.80},
			{Name: "larva_l1", MinDays: 3, MaxDays: 5, Survival: 0.85, Predatory: true, PredationRate: 2},
			{Name: "larva_l2", MinDays: 4, MaxDays: 6, Survival: 0.87, Predatory: true, PredationRate: 5},
			{Name: "larva_l3", MinDays: 5, MaxDays: 8, Survival: 0.88, Predatory: true, PredationRate: 10},
			{Name: "larva_l4", MinDays: 6, MaxDays: 10, Survival: 0.90, Predatory: true, PredationRate: 15},
			{Name: "pupa", MinDays: 4, MaxDays: 6, Survival: 0.92},
			{Name: "adult", MinDays: 30, MaxDays: 60, Survival: 0.97, DailySurvival: true},
		},
		Reproduction: Reproduction{
			EggsPerBatchMin:    30,
			EggsPerBatchMax:    60,
			OvipositionEvents:  4,
			MinReproductionAge: 5,
		},
		Sensitivity: Sensitivity{
			OptTempMin:  24,
			OptTempMax:  29,
			OptHumidity: 75,
		},
		FemaleRatio:  0.5,
		MinViablePop: 20,
		Predation: &FunctionalResponse{
			AttackRate:   0.5,
			HandlingTime: 0.1,
			PreyGenus:    "aedes",
		},
	}
}
