package main

import (
	"context"
	"fmt"
	"log"

	"github.com/clinref/clinref"
	"github.com/clinref/clinref/core/retrieval"
	"github.com/clinref/clinref/helper"
	"github.com/clinref/clinref/llm"
	"github.com/clinref/clinref/model"
)

const stemiProtocol = `STEMI Management Protocol

Immediate actions for ST-elevation myocardial infarction:
1. Obtain 12-lead ECG within 10 minutes of arrival.
2. Give aspirin 325 mg chewed unless contraindicated.
3. Activate the cardiac catheterization lab. Door-to-balloon target is 90 minutes.
4. Start continuous cardiac monitoring and obtain IV access.
5. Consider ticagrelor 180 mg loading dose per cardiology.`

const anaphylaxisGuide = `Anaphylaxis Treatment Guide

First-line treatment is epinephrine 0.3 mg intramuscular in the anterolateral
thigh, repeated every 5 to 15 minutes as needed. Place the patient supine,
give high-flow oxygen, and establish IV access for fluid resuscitation.
Adjuncts include diphenhydramine and corticosteroids after epinephrine.`

func main() {
	// Start a test PostgreSQL container
	teardown, dbPort, err := helper.MustStartPostgresContainer()
	if err != nil {
		log.Fatalf("Failed to start PostgreSQL container: %v", err)
	}
	defer teardown(context.Background())

	dbConfig := &helper.DatabaseConfiguration{
		Host:     "localhost",
		Port:     dbPort,
		Database: "database",
		Username: "user",
		Password: "password",
	}

	// The vector path needs an embedder; skip it when the model can not be
	// prepared and run lexical-only.
	embedder, err := retrieval.DefaultEmbedder()
	if err != nil {
		log.Printf("Embedder unavailable, running lexical-only: %v", err)
		embedder = nil
	}

	ref, err := clinref.New(dbConfig, clinref.Options{
		Generator: llm.NewOllamaClient("", ""),
		Embedder:  embedder,
	})
	if err != nil {
		log.Fatalf("Failed to create clinref: %v", err)
	}
	defer ref.Close()

	// Register reference documents and their chunks
	documents := map[*model.Document]string{
		{
			Filename:    "stemi_protocol_2024.pdf",
			DisplayName: "STEMI Management Protocol",
			Metadata:    model.Metadata{"department": "cardiology"},
		}: stemiProtocol,
		{
			Filename:    "anaphylaxis_guide.pdf",
			DisplayName: "Anaphylaxis Treatment Guide",
			Metadata:    model.Metadata{"department": "emergency"},
		}: anaphylaxisGuide,
		{
			Filename:    "blood_transfusion_consent.pdf",
			DisplayName: "Blood Transfusion Consent Form",
			Metadata:    model.Metadata{"department": "nursing"},
		}: "Consent form for blood product transfusion.",
	}

	for doc, content := range documents {
		if err := ref.Documents.InsertDocument(doc); err != nil {
			log.Fatalf("Failed to insert document: %v", err)
		}
		chunk := &model.Chunk{DocumentID: doc.ID, Content: content}
		if embedder != nil {
			if chunk.Embedding, err = embedder(content); err != nil {
				log.Fatalf("Failed to embed chunk: %v", err)
			}
		}
		if err := ref.Chunks.InsertChunk(chunk); err != nil {
			log.Fatalf("Failed to insert chunk: %v", err)
		}
	}

	// A curated fact answers the most common phrasing instantly
	err = ref.Curated.InsertCuratedEntry(&model.CuratedEntry{
		Variants:  []string{"stemi door to balloon time", "door to balloon target"},
		Answer:    "The door-to-balloon target for STEMI is 90 minutes [STEMI Management Protocol].",
		QueryType: model.QueryTypeProtocol,
		Source:    "stemi_protocol_2024.pdf",
		Anchors:   []string{"stemi", "balloon"},
		Version:   1,
	})
	if err != nil {
		log.Fatalf("Failed to insert curated entry: %v", err)
	}

	pager := "1234"
	err = ref.Contacts.UpsertContact(&model.Contact{
		Specialty: "cardiology",
		Name:      "Dr. Rivera",
		Phone:     "555-0100",
		Pager:     &pager,
	})
	if err != nil {
		log.Fatalf("Failed to insert contact: %v", err)
	}

	ctx := context.Background()
	if err := ref.Reload(ctx); err != nil {
		log.Fatalf("Failed to reload stores: %v", err)
	}

	queries := []string{
		"What is the door-to-balloon target for STEMI?",
		"What is the protocol for treating anaphylaxis?",
		"Where do I find the blood transfusion consent form?",
		"Who is on call for cardiology?",
	}

	for _, query := range queries {
		fmt.Printf("\nQ: %s\n", query)
		response, err := ref.Process(ctx, query, "example-session")
		if err != nil {
			log.Printf("Query failed: %v", err)
			continue
		}
		fmt.Printf("A: %s\n", response.Text)
		fmt.Printf("   type=%s confidence=%.2f cache_hit=%v\n",
			response.QueryType, response.Confidence, response.CacheHit)
		for _, source := range response.Sources {
			fmt.Printf("   source: %s (%s)\n", source.DisplayName, source.Filename)
		}
		for _, warning := range response.Warnings {
			fmt.Printf("   warning: %s\n", warning)
		}
	}
}
