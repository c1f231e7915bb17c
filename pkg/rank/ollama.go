// Copyright 2026 KrakLabs
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published
// by the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program. If not, see <https://www.gnu.org/licenses/>.
//
// For commercial licensing, contact: licensing@kraklabs.com
//
// SPDX-License-Identifier: AGPL-3.0-or-later

package rank

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"os"
	"time"
)

const (
	defaultOllamaBaseURL = "http://localhost:11434"
	defaultOllamaModel   = "nomic-embed-text"
	ollamaTimeout        = 30 * time.Second
)

// OllamaEmbedder is the default production Embedder, calling a local
// Ollama instance's embeddings API one text at a time (spec §4.5:
// "external black-box embedding provider"). Grounded on the
// OLLAMA_BASE_URL/OLLAMA_EMBED_MODEL environment variable convention
// used throughout the ingestion config.
type OllamaEmbedder struct {
	BaseURL string
	Model   string
	client  *http.Client
}

// NewOllamaEmbedder builds an embedder from OLLAMA_BASE_URL/OLLAMA_EMBED_MODEL,
// defaulting to a local Ollama instance and nomic-embed-text.
func NewOllamaEmbedder() *OllamaEmbedder {
	base := os.Getenv("OLLAMA_BASE_URL")
	if base == "" {
		base = defaultOllamaBaseURL
	}
	model := os.Getenv("OLLAMA_EMBED_MODEL")
	if model == "" {
		model = defaultOllamaModel
	}
	return &OllamaEmbedder{BaseURL: base, Model: model, client: &http.Client{Timeout: ollamaTimeout}}
}

type ollamaEmbedRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
}

type ollamaEmbedResponse struct {
	Embedding []float32 `json:"embedding"`
}

// Embed satisfies rank.Embedder, calling /api/embeddings once per text
// (Ollama's embeddings endpoint is single-prompt) and L2-normalizing the
// result so downstream dense search can use a plain dot product.
func (o *OllamaEmbedder) Embed(texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, text := range texts {
		vec, err := o.embedOne(text)
		if err != nil {
			return nil, fmt.Errorf("ollama embed %d/%d: %w", i+1, len(texts), err)
		}
		out[i] = vec
	}
	return out, nil
}

func (o *OllamaEmbedder) embedOne(text string) ([]float32, error) {
	body, err := json.Marshal(ollamaEmbedRequest{Model: o.Model, Prompt: text})
	if err != nil {
		return nil, err
	}
	resp, err := o.client.Post(o.BaseURL+"/api/embeddings", "application/json", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("ollama returned status %d", resp.StatusCode)
	}
	var parsed ollamaEmbedResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, err
	}
	return normalize(parsed.Embedding), nil
}

func normalize(v []float32) []float32 {
	var sumSq float64
	for _, x := range v {
		sumSq += float64(x) * float64(x)
	}
	if sumSq == 0 {
		return v
	}
	norm := float32(math.Sqrt(sumSq))
	out := make([]float32, len(v))
	for i, x := range v {
		out[i] = x / norm
	}
	return out
}
