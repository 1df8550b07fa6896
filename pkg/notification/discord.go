package notification

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"go.uber.org/ratelimit"

	"github.com/autobrr/dupescan/pkg/config"
	"github.com/autobrr/dupescan/pkg/dedupe"
	"github.com/autobrr/dupescan/pkg/httputils"
)

const (
	maxEmbedsPerMessage = 10
	maxCharactersPerMsg = 6000
	maxFieldValueLength = 1024

	// hardcoded limit of fields to avoid hammering the api
	maxTotalFields = 250
)

type DiscordMessage struct {
	Content interface{}    `json:"content"`
	Embeds  []DiscordEmbed `json:"embeds,omitempty"`
}

type DiscordEmbed struct {
	Title       string               `json:"title"`
	Description string               `json:"description"`
	Color       int                  `json:"color"`
	Fields      []DiscordEmbedsField `json:"fields,omitempty"`
	Footer      DiscordEmbedsFooter  `json:"footer,omitempty"`
	Timestamp   time.Time            `json:"timestamp"`
}

type DiscordEmbedsFooter struct {
	Text string `json:"text"`
}

type DiscordEmbedsField struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline,omitempty"`
}

type EmbedColors int

const (
	LIGHT_BLUE EmbedColors = 0x58b9ff
	RED        EmbedColors = 0xed4245
	GREEN      EmbedColors = 0x57f287
	GRAY       EmbedColors = 0x99aab5
)

type discordSender struct {
	log    *logrus.Entry
	config config.NotificationsConfig

	httpClient *http.Client
}

func (d *discordSender) Name() string {
	return "discord"
}

func NewDiscordSender(log *logrus.Entry, config config.NotificationsConfig) Sender {
	log = log.WithField("sender", "discord")
	return &discordSender{
		log:    log,
		config: config,
		// discord allows roughly 5 webhook requests per 2 seconds
		httpClient: httputils.NewRetryableHttpClient(30*time.Second, ratelimit.New(2), log),
	}
}

// Calculate the actual JSON size of an embed
func (d *discordSender) calculateEmbedSize(embed DiscordEmbed) (int, error) {
	jsonData, err := json.Marshal(embed)
	if err != nil {
		return 0, err
	}
	return len(jsonData), nil
}

func (d *discordSender) Send(title string, description string, runTime time.Duration, fields []Field) error {
	var (
		allEmbeds   []DiscordEmbed
		totalFields = len(fields)
		timestamp   = time.Now()

		batches      [][]DiscordEmbed
		currentBatch []DiscordEmbed
		currentChars int
	)

	// if the config setting "skip_empty_run" is set to true, and there are no fields,
	// skip sending the message entirely.
	if totalFields == 0 && d.config.SkipEmptyRun {
		d.log.Debug("Skipping notification for empty run")
		return nil
	}

	rt := runTime.Truncate(time.Millisecond).String()

	// only send a summary embed if no fields are present, there are more fields than allowed,
	// or the config setting "detailed" is set to false
	if totalFields == 0 || totalFields > maxTotalFields || !d.config.Detailed {
		allEmbeds = append(allEmbeds, DiscordEmbed{
			Title:       title,
			Description: description,
			Color:       int(LIGHT_BLUE),
			Footer: DiscordEmbedsFooter{
				Text: d.buildFooter(0, totalFields, rt),
			},
			Timestamp: timestamp,
		})
	} else {
		// one embed per cluster
		for i, field := range fields {
			embed := DiscordEmbed{
				Title:  title,
				Color:  int(GRAY),
				Fields: d.parseFieldValueToInlineFields(field.Value),
				Footer: DiscordEmbedsFooter{
					Text: d.buildFooter(i+1, totalFields, rt),
				},
				Timestamp: timestamp,
			}

			if field.Name != "" {
				embed.Description = fmt.Sprintf("**%s**", field.Name)
			}

			allEmbeds = append(allEmbeds, embed)
		}
		allEmbeds = append(allEmbeds, DiscordEmbed{
			Title:       fmt.Sprintf("%s - Summary", title),
			Description: description,
			Color:       int(LIGHT_BLUE),
			Footer: DiscordEmbedsFooter{
				Text: d.buildFooter(0, 0, rt),
			},
			Timestamp: timestamp,
		})
	}

	// Batch embeds for messages (max 10 embeds per message)
	flush := func() {
		if len(currentBatch) == 0 {
			return
		}
		batches = append(batches, currentBatch)
		currentBatch = nil
		currentChars = 0
	}

	for _, e := range allEmbeds {
		eSize, err := d.calculateEmbedSize(e)
		if err != nil {
			return errors.Wrap(err, "failed to calculate embed size for batching")
		}

		// If adding this embed breaks either the embed-count or char limit, flush first
		if len(currentBatch) >= maxEmbedsPerMessage || currentChars+eSize > maxCharactersPerMsg {
			flush()
		}

		currentBatch = append(currentBatch, e)
		currentChars += eSize
	}
	flush()

	totalMsgs := len(batches)

	for i, batch := range batches {
		msg := DiscordMessage{
			Content: nil,
			Embeds:  batch,
		}
		jsonData, err := json.Marshal(msg)
		if err != nil {
			return errors.Wrap(err, "could not marshal json request for a message chunk")
		}
		if err := d.sendRequest(jsonData); err != nil {
			return errors.Wrap(err, "failed to send a message chunk to Discord")
		}

		d.log.Debugf("Sent Discord message %d/%d (%d embeds, %d chars).",
			i+1, totalMsgs, len(batch), len(jsonData))
	}

	d.log.Debugf("All %d Discord messages sent successfully.", totalMsgs)
	return nil
}

func (d *discordSender) CanSend() bool {
	return d.config.Service.Discord != ""
}

func (d *discordSender) sendRequest(jsonData []byte) error {
	req, err := http.NewRequest(http.MethodPost, d.config.Service.Discord, bytes.NewReader(jsonData))
	if err != nil {
		return errors.Wrap(err, "could not create request")
	}

	req.Header.Set("Content-Type", "application/json")

	res, err := d.httpClient.Do(req)
	if err != nil {
		return errors.Wrap(err, "client request error")
	}
	defer res.Body.Close()

	d.log.Tracef("Discord response status: %d", res.StatusCode)

	if res.StatusCode != http.StatusOK && res.StatusCode != http.StatusNoContent {
		body, readErr := io.ReadAll(res.Body)
		if readErr != nil {
			return errors.Wrap(readErr, "could not read body")
		}

		return errors.Errorf("unexpected status: %v body: %v", res.StatusCode, string(body))
	}

	return nil
}

// BuildField constructs a Field based on the provided action and build options.
func (d *discordSender) BuildField(action Action, opt BuildOptions) Field {
	switch action {
	case ActionDuplicate, ActionHardlink:
		return d.buildClusterField(action, opt.Cluster, opt.Index)
	}

	return Field{}
}

func (d *discordSender) buildClusterField(action Action, cluster dedupe.Cluster, index int) Field {
	var inlineFields []DiscordEmbedsField

	kind := "Duplicate"
	if action == ActionHardlink {
		kind = "Hardlink"
	}

	inlineFields = append(inlineFields, DiscordEmbedsField{
		Name:   "Type",
		Value:  kind,
		Inline: true,
	})

	inlineFields = append(inlineFields, DiscordEmbedsField{
		Name:   "Copies",
		Value:  fmt.Sprintf("%d", len(cluster.Members)),
		Inline: true,
	})

	if reclaimable := cluster.Reclaimable(); reclaimable > 0 {
		inlineFields = append(inlineFields, DiscordEmbedsField{
			Name:   "Reclaimable",
			Value:  humanize.IBytes(uint64(reclaimable)),
			Inline: true,
		})
	}

	members := make([]string, 0, len(cluster.Members))
	for _, m := range cluster.Members {
		members = append(members, m.Path)
	}

	inlineFields = append(inlineFields, DiscordEmbedsField{
		Name:   "Paths",
		Value:  truncate(strings.Join(members, "\n"), maxFieldValueLength),
		Inline: false,
	})

	// Serialize to JSON to store in the field value
	jsonData, _ := json.Marshal(inlineFields)

	return Field{
		Name:  fmt.Sprintf("#%d (%s each)", index, humanize.IBytes(uint64(cluster.Size))),
		Value: string(jsonData),
	}
}

func (d *discordSender) parseFieldValueToInlineFields(value string) []DiscordEmbedsField {
	var fields []DiscordEmbedsField

	if err := json.Unmarshal([]byte(value), &fields); err != nil {
		d.log.WithError(err).Error("Failed to parse field value as JSON")
		return []DiscordEmbedsField{}
	}

	return fields
}

func (d *discordSender) buildFooter(progress int, totalFields int, runTime string) string {
	if totalFields == 0 {
		return fmt.Sprintf("Took: %s", runTime)
	}

	return fmt.Sprintf("Progress: %d/%d | Took: %s", progress, totalFields, runTime)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}
