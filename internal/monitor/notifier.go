package monitor

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// maxReportLines limita quantos projetos aparecem no alerta.
const maxReportLines = 20

// Notifier recebe o resultado de varreduras com divergência ou falha.
type Notifier interface {
	NotifyDrift(ctx context.Context, summary *Summary) error
}

// WebhookNotifier publica o relatório de divergências em webhook compatível com Slack.
type WebhookNotifier struct {
	webhookURL string
	client     *http.Client
}

// NewWebhookNotifier devolve nil quando a URL não é configurada.
func NewWebhookNotifier(webhookURL string) *WebhookNotifier {
	if webhookURL == "" {
		return nil
	}
	return &WebhookNotifier{
		webhookURL: webhookURL,
		client:     &http.Client{Timeout: 5 * time.Second},
	}
}

func (n *WebhookNotifier) NotifyDrift(ctx context.Context, summary *Summary) error {
	if n == nil {
		return errors.New("webhook não configurado")
	}
	body, err := json.Marshal(map[string]string{"text": driftReport(summary)})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.webhookURL, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("webhook respondeu %d", resp.StatusCode)
	}
	return nil
}

// driftReport lista cada projeto corrigido com o progresso gravado e o recalculado, seguido das falhas.
func driftReport(summary *Summary) string {
	prefix := ":warning:"
	if len(summary.Failed) > 0 {
		prefix = ":rotating_light:"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s *Progresso de projetos* %d de %d corrigidos, %d falhas no recálculo",
		prefix, len(summary.Corrected), summary.Checked, len(summary.Failed))

	lines := 0
	for _, d := range summary.Corrected {
		if lines == maxReportLines {
			break
		}
		fmt.Fprintf(&b, "\n• %s: %d%% → %d%%", d.ProjectID, d.Stored, d.Computed)
		lines++
	}
	for _, id := range summary.Failed {
		if lines == maxReportLines {
			break
		}
		fmt.Fprintf(&b, "\n• %s: falha no recálculo", id)
		lines++
	}
	if rest := len(summary.Corrected) + len(summary.Failed) - lines; rest > 0 {
		fmt.Fprintf(&b, "\n… e mais %d", rest)
	}
	return b.String()
}
