package googleEmbedding

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/akolanti/CampusRAG/internal/config"
	"github.com/akolanti/CampusRAG/pkg/logger_i"
	"google.golang.org/genai"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func getContent(chunks []string) []*genai.Content {
	contentsToSend := make([]*genai.Content, 0, len(chunks))
	for _, chunk := range chunks {
		contentsToSend = append(contentsToSend, &genai.Content{
			Parts: []*genai.Part{{Text: chunk}},
		})
	}
	return contentsToSend
}

// only rate limits are worth one more try
func doRetry(err error, log *logger_i.Logger) bool {
	if s, ok := status.FromError(err); ok && s.Code() == codes.ResourceExhausted {
		log.Warn("Rate limit hit", "error", err)
		return true
	}
	if apiErrorCode(err) == http.StatusTooManyRequests {
		log.Warn("Rate limit hit", "error", err)
		return true
	}
	return false
}

func (c *client) getInlinedBatchRequests(chunks []string) *genai.EmbedContentBatch {
	return &genai.EmbedContentBatch{
		Config:   c.embedConfig(taskDocument),
		Contents: getContent(chunks),
	}
}

func (c *client) pollForAnswer(ctx context.Context, batchJobName string, log *logger_i.Logger) (*genai.BatchJob, error) {
	ticker := time.NewTicker(config.EmbeddingBatchPollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			log.Error("pollForAnswer cancelled", "error", ctx.Err())
			return nil, ctx.Err()

		case <-ticker.C:
			bJob, err := c.genAi.Batches.Get(ctx, batchJobName, nil)
			if err != nil {
				log.Error("Error getting batch job", "error", err)
				continue
			}

			//https://pkg.go.dev/google.golang.org/genai#JobState
			switch bJob.State {
			case genai.JobStateSucceeded:
				log.Debug("batch job succeeded")
				return bJob, nil
			case genai.JobStateFailed, genai.JobStateCancelled, genai.JobStateExpired:
				msg := string(bJob.State)
				if bJob.Error != nil {
					msg = bJob.Error.Message
				}
				log.Error("batch job failed", "state", bJob.State, "message", msg)
				return nil, fmt.Errorf("embedding batch job %s: %s", batchJobName, msg)
			}
		}
	}
}

// a failed item leaves a nil vector at its position, the pipeline reports it
func downloadAnswerFromClient(answer *genai.BatchJob, expected int, log *logger_i.Logger) [][]float32 {
	results := make([][]float32, expected)
	if answer.Dest == nil {
		log.Error("batch job has no destination", "error", errors.New("empty batch answer"))
		return results
	}
	for i, r := range answer.Dest.InlinedEmbedContentResponses {
		if i >= expected {
			break
		}
		if r == nil || r.Error != nil || r.Response == nil || r.Response.Embedding == nil {
			log.Error("Error with a particular result in batch embedding", "index", i)
			continue
		}
		results[i] = r.Response.Embedding.Values
	}
	return results
}
