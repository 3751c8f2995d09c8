package ingest

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/akolanti/CampusRAG/internal/config"
	"github.com/akolanti/CampusRAG/internal/domain/commonModels"
	"github.com/akolanti/CampusRAG/internal/domain/ragErrors"
	"github.com/akolanti/CampusRAG/pkg/logger_i"
	"github.com/dslipak/pdf"
	"github.com/lu4p/cat"
)

var logger = logger_i.NewLogger("Ingest")

type rawPage struct {
	Number  int    `json:"number"`
	Content string `json:"content"`
}

func getDocType(docPath string) commonModels.DocType {
	ext := strings.ToLower(filepath.Ext(docPath))
	switch ext {
	case ".pdf":
		return commonModels.PDF
	case ".docx", ".odt", ".rtf":
		return commonModels.DOCX
	case ".txt", ".md":
		return commonModels.TXT
	default:
		return commonModels.ERR
	}
}

// ExtractFile reads an uploaded file into a Document. name is the original filename and
// becomes the source id, path is where the upload was stored.
func ExtractFile(ctx context.Context, path string, name string) (commonModels.Document, error) {
	docType := getDocType(name)
	if docType == commonModels.ERR {
		return commonModels.Document{}, fmt.Errorf("%w: %s", ragErrors.ErrUnsupportedFile, filepath.Ext(name))
	}

	var pages []rawPage
	var err error
	switch docType {
	case commonModels.PDF:
		pages, err = extractPDF(ctx, path)
	default:
		pages, err = extractdocxTxtRtf(path)
	}
	if err != nil {
		return commonModels.Document{}, err
	}

	texts := make([]string, 0, len(pages))
	for _, p := range pages {
		if strings.TrimSpace(p.Content) != "" {
			texts = append(texts, p.Content)
		}
	}
	logger.Debug("Extracted document", "name", name, "type", docType, "pages", len(pages))

	return commonModels.Document{
		SourceID: name,
		Title:    strings.TrimSuffix(filepath.Base(name), filepath.Ext(name)),
		Text:     strings.Join(texts, "\n\n"),
		Origin:   commonModels.OriginUpload,
		FileType: docType,
	}, nil
}

func extractPDF(ctx context.Context, path string) ([]rawPage, error) {
	f, err := pdf.Open(path)
	if err != nil {
		logger.Error("failed opening of pdf file", "path", path)
		return nil, fmt.Errorf("failed to open pdf: %w", err)
	}

	var pages []rawPage
	numPages := f.NumPage()
	logger.Debug("extractPDF", "number of pages", numPages)
	for i := 1; i <= numPages; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		page := f.Page(i)
		if page.V.IsNull() {
			continue
		}

		content, err := protectExtract(ctx, page)
		if err != nil {
			// one broken page should not lose the rest of the file
			logger.Error("Error parsing page content", "page", i, "error", err)
			continue
		}

		pages = append(pages, rawPage{
			Number:  i,
			Content: content,
		})
	}
	return pages, nil
}

// reads a .odt, .docx, .rtf or plaintext file as a single page
func extractdocxTxtRtf(path string) ([]rawPage, error) {
	text, err := cat.File(path)
	if err != nil {
		logger.Error("Error extracting content from doc", "path", path)
		return nil, fmt.Errorf("failed to extract document: %w", err)
	}
	return []rawPage{{Number: 1, Content: text}}, nil
}

func protectExtract(ctx context.Context, page pdf.Page) (string, error) {
	type result struct {
		content string
		err     error
	}
	resChan := make(chan result, 1)

	go func() {
		content, err := page.GetPlainText(nil)
		resChan <- result{content, err}
	}()

	timer := time.NewTimer(config.PDFPageTimeout)
	defer timer.Stop()
	select {
	case r := <-resChan:
		return r.content, r.err
	case <-ctx.Done():
		return "", ctx.Err()
	case <-timer.C:
		return "", errors.New("page extraction timeout")
	}
}
