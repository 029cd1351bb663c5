package dto

import "github.com/your-org/mallid/internal/models"

// AssociationResponse is the wire shape for GET /v1/associations, including
// the sub-score and component breakdown needed to audit an ambiguous or
// rejected decision.
type AssociationResponse struct {
	FromTrackletID string  `json:"from_tracklet_id"`
	ToTrackletID   string  `json:"to_tracklet_id"`
	Decision       string  `json:"decision"`
	FinalScore     float64 `json:"final_score"`
	CandidateCount int     `json:"candidate_count"`

	OutfitSim     float64 `json:"outfit_sim"`
	TimeScore     float64 `json:"time_score"`
	AdjScore      float64 `json:"adj_score"`
	PhysiqueScore float64 `json:"physique_score"`

	DeltaTSec     float64 `json:"delta_t_sec"`
	ExpectedMuSec float64 `json:"expected_mu_sec"`
	TauSec        float64 `json:"tau_sec"`
	EmbedCosine   float64 `json:"embed_cosine"`
}

type AssociationListResponse struct {
	Associations []AssociationResponse `json:"associations"`
	Total        int                   `json:"total"`
}

func FromAssociation(a models.Association) AssociationResponse {
	return AssociationResponse{
		FromTrackletID: a.FromTrackletID,
		ToTrackletID:   a.ToTrackletID,
		Decision:       string(a.Decision),
		FinalScore:     a.FinalScore,
		CandidateCount: a.CandidateCount,
		OutfitSim:      a.SubScores.OutfitSim,
		TimeScore:      a.SubScores.TimeScore,
		AdjScore:       a.SubScores.AdjScore,
		PhysiqueScore:  a.SubScores.PhysiqueScore,
		DeltaTSec:      a.Components.DeltaTSec,
		ExpectedMuSec:  a.Components.ExpectedMuSec,
		TauSec:         a.Components.TauSec,
		EmbedCosine:    a.Components.EmbedCosine,
	}
}
