package testutil

import (
	"fmt"
	"time"

	"github.com/derril-tech/ai-patent-explorer/pkg/types/patent"
)

// SampleClaimText is an independent claim with numbered preamble, semicolon
// separated elements, and a wherein clause, exercising every segmentation rule.
const SampleClaimText = `1. A method for processing sensor data, comprising: ` +
	`receiving a data stream from a plurality of wireless sensors; ` +
	`applying a machine learning model to classify each sample in the data stream; ` +
	`storing classified samples in a distributed database, wherein the database ` +
	`partitions samples by sensor identifier`

// SampleClaim returns a Claim populated with SampleClaimText.
func SampleClaim() patent.Claim {
	return patent.Claim{
		ID:            "claim-0001",
		PatentID:      "US1234567",
		Number:        1,
		Text:          SampleClaimText,
		IsIndependent: true,
	}
}

// Date builds a UTC midnight time.Time, the shape priority dates come in.
func Date(year, month, day int) *time.Time {
	t := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	return &t
}

// SampleDocuments returns a small reference corpus spanning two CPC areas,
// two assignees, and one shared patent family.
func SampleDocuments() []patent.PatentDocument {
	return []patent.PatentDocument{
		{
			ID:           "US1111111",
			WorkspaceID:  "ws-1",
			Title:        "Wireless sensor network data aggregation",
			Abstract:     "A wireless sensor network aggregates sensor data streams for processing at a central node.",
			Assignees:    []string{"Acme Networks"},
			CPCCodes:     []string{"H04L", "H04W"},
			PriorityDate: Date(2015, 3, 10),
			FamilyID:     "fam-100",
		},
		{
			ID:           "US2222222",
			WorkspaceID:  "ws-1",
			Title:        "Machine learning classification of streaming data",
			Abstract:     "A neural network classifier processes streaming data samples and assigns class labels in real time.",
			Assignees:    []string{"Acme Networks"},
			CPCCodes:     []string{"G06N", "G06F"},
			PriorityDate: Date(2016, 7, 22),
			FamilyID:     "fam-100",
		},
		{
			ID:           "US3333333",
			WorkspaceID:  "ws-1",
			Title:        "Distributed database partitioning",
			Abstract:     "A distributed database partitions stored records across nodes using a key derived from record identifiers.",
			Assignees:    []string{"DataCorp"},
			CPCCodes:     []string{"G06F"},
			PriorityDate: Date(2012, 1, 5),
			FamilyID:     "fam-200",
		},
		{
			ID:           "US4444444",
			WorkspaceID:  "ws-1",
			Title:        "Catheter guidance apparatus",
			Abstract:     "An apparatus guides a catheter through vasculature using imaging feedback.",
			Assignees:    []string{"MedTech Inc"},
			CPCCodes:     []string{"A61B"},
			PriorityDate: Date(2018, 11, 30),
			FamilyID:     "fam-300",
		},
	}
}

// Corpus builds n synthetic documents for index-scale tests.  Every third
// document mentions "neural network" so term statistics stay non-uniform.
func Corpus(n int) []patent.PatentDocument {
	docs := make([]patent.PatentDocument, 0, n)
	for i := 0; i < n; i++ {
		abstract := fmt.Sprintf("Document %d describes a data processing system for patent analysis.", i)
		if i%3 == 0 {
			abstract += " The system trains a neural network on claim text."
		}
		docs = append(docs, patent.PatentDocument{
			ID:          fmt.Sprintf("US%07d", 5000000+i),
			WorkspaceID: "ws-bulk",
			Title:       fmt.Sprintf("Data processing system %d", i),
			Abstract:    abstract,
			CPCCodes:    []string{"G06F"},
		})
	}
	return docs
}
