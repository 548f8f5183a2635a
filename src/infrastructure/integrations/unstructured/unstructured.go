package unstructured

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"sort"

	"scholarbot/src/core/rag"
)

// Service converts paginated binary documents (PDF) into per-page text via
// the Unstructured partition API.
type Service struct {
	baseURL    string
	httpClient *http.Client
}

type element struct {
	Type     string `json:"type"`
	Text     string `json:"text"`
	Metadata struct {
		Filename   string `json:"filename,omitempty"`
		Filetype   string `json:"filetype,omitempty"`
		PageNumber int    `json:"page_number,omitempty"`
	} `json:"metadata"`
}

func NewService(baseURL string, c *http.Client) *Service {
	if c == nil {
		c = &http.Client{}
	}
	return &Service{baseURL: baseURL, httpClient: c}
}

// Convert implements rag.PaginatedConverter. Elements are grouped by page
// number in ascending order.
func (s *Service) Convert(ctx context.Context, filename string, content []byte) ([]rag.PageText, error) {
	var requestBody bytes.Buffer
	multipartWriter := multipart.NewWriter(&requestBody)

	fileWriter, err := multipartWriter.CreateFormFile("files", filename)
	if err != nil {
		return nil, fmt.Errorf("failed to create form file: %w", err)
	}
	if _, err = io.Copy(fileWriter, bytes.NewReader(content)); err != nil {
		return nil, fmt.Errorf("failed to write file content: %w", err)
	}
	if err := multipartWriter.WriteField("output_format", "application/json"); err != nil {
		return nil, fmt.Errorf("failed to write output format: %w", err)
	}
	multipartWriter.Close()

	httpReq, err := http.NewRequestWithContext(ctx, "POST", s.baseURL+"/general/v0/general", &requestBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("Content-Type", multipartWriter.FormDataContentType())

	resp, err := s.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("failed to reach conversion service: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("%w: conversion service returned %s: %s", rag.ErrCorruptDocument, resp.Status, string(body))
	}

	var elements []element
	if err := json.NewDecoder(resp.Body).Decode(&elements); err != nil {
		return nil, fmt.Errorf("%w: failed to parse conversion response: %v", rag.ErrCorruptDocument, err)
	}

	byPage := make(map[int][]string)
	for _, el := range elements {
		if el.Text == "" {
			continue
		}
		page := el.Metadata.PageNumber
		if page == 0 {
			page = 1
		}
		byPage[page] = append(byPage[page], el.Text)
	}

	numbers := make([]int, 0, len(byPage))
	for n := range byPage {
		numbers = append(numbers, n)
	}
	sort.Ints(numbers)

	pages := make([]rag.PageText, 0, len(numbers))
	for _, n := range numbers {
		text := ""
		for i, t := range byPage[n] {
			if i > 0 {
				text += "\n"
			}
			text += t
		}
		pages = append(pages, rag.PageText{Number: n, Text: text})
	}
	return pages, nil
}
