package facts

// Relation names used by the simulation knowledge base.
const (
	RelStageDuration      = "stage_duration"       // species, stage, minDays, maxDays
	RelStageSuccessor     = "stage_successor"      // species, fromStage, toStage
	RelStageFlags         = "stage_flags"          // species, stage, predatory, vulnerable
	RelSurvivalRate       = "survival_rate"        // species, fromStage, toStage, rate
	RelPredationRate      = "predation_rate"       // species, stage, preyPerPredatorPerDay
	RelFecundity          = "fecundity"            // species, minEggs, maxEggs, events, minAgeDays
	RelFunctionalResponse = "functional_response"  // species, attackRate, handlingTime
	RelEnvSensitivity     = "env_sensitivity"      // species, optTempMin, optTempMax, optHumidity
	RelSpeciesGenus       = "species_genus"        // species, genus
	RelMinViablePop       = "min_viable_population" // species, threshold
	RelEnvironmentalParam = "environmental_param"  // name, value
	RelPopulationState    = "population_state"     // species, stage, day, count
	RelEnvironmentalState = "environmental_state"  // day, temperature, humidity
	RelAgentSpecies       = "agent_species"        // agentID, species
	RelAgentState         = "agent_state"          // agentID, stage, age, energy, reproduced
	RelAgentStatus        = "agent_status"         // agentID, status, cause
	RelReproductionSite   = "reproduction_site"    // available
	RelPreyAvailable      = "prey_available"       // species, count
)

// NewSimulationStore creates a store with the full simulation schema
// declared. Parameter relations survive Reset; state relations do not.
func NewSimulationStore() *Store {
	s := NewStore()
	for _, sc := range []Schema{
		{Name: RelStageDuration, Arity: 4, Keys: 2, Param: true},
		{Name: RelStageSuccessor, Arity: 3, Keys: 2, Param: true},
		{Name: RelStageFlags, Arity: 4, Keys: 2, Param: true},
		{Name: RelSurvivalRate, Arity: 4, Keys: 3, Param: true},
		{Name: RelPredationRate, Arity: 3, Keys: 2, Param: true},
		{Name: RelFecundity, Arity: 5, Keys: 1, Param: true},
		{Name: RelFunctionalResponse, Arity: 3, Keys: 1, Param: true},
		{Name: RelEnvSensitivity, Arity: 4, Keys: 1, Param: true},
		{Name: RelSpeciesGenus, Arity: 2, Keys: 1, Param: true},
		{Name: RelMinViablePop, Arity: 2, Keys: 1, Param: true},
		{Name: RelEnvironmentalParam, Arity: 2, Keys: 1, Param: true},
		{Name: RelPopulationState, Arity: 4, Keys: 3},
		{Name: RelEnvironmentalState, Arity: 3, Keys: 1},
		{Name: RelAgentSpecies, Arity: 2, Keys: 1},
		{Name: RelAgentState, Arity: 5, Keys: 1},
		{Name: RelAgentStatus, Arity: 3, Keys: 1},
		{Name: RelReproductionSite, Arity: 1, Keys: 0},
		{Name: RelPreyAvailable, Arity: 2, Keys: 1},
	} {
		s.MustDeclare(sc)
	}
	return s
}
