// internal/app/app.go
package app

import (
	"context"
	"fmt"
	"io"
	"log"
	"strings"
	"time"

	"github.com/markdave123-py/damage-detector/internal/config"
	"github.com/markdave123-py/damage-detector/internal/core"
	"github.com/markdave123-py/damage-detector/internal/core/assessment"
	"github.com/markdave123-py/damage-detector/internal/core/auth"
	"github.com/markdave123-py/damage-detector/internal/core/cost"
	db "github.com/markdave123-py/damage-detector/internal/core/database"
	"github.com/markdave123-py/damage-detector/internal/core/events"
	"github.com/markdave123-py/damage-detector/internal/core/llm"
	objectclient "github.com/markdave123-py/damage-detector/internal/core/object-client"
	"github.com/markdave123-py/damage-detector/internal/core/vision"
	"github.com/markdave123-py/damage-detector/internal/services"
)

const eventQueueSize = 256

type App struct {
	DBClient     core.DbClient
	ObjectClient core.ObjectClient
	Events       *events.Dispatcher
	Server       *Server

	llm         *llm.GeminiLLM
	stopWorkers context.CancelFunc
}

func NewApp(ctx context.Context, cfg *config.Config) (*App, error) {
	appCtx, cancel := context.WithTimeout(ctx, 5*time.Minute)
	defer cancel()

	a := &App{}
	ok := false
	defer func() {
		if !ok {
			a.Close()
		}
	}()

	dbClient, err := db.NewDatabaseClient(appCtx, cfg)
	if err != nil {
		return nil, err
	}
	a.DBClient = dbClient
	log.Println("Database initialized and ready.")

	objClient, bucket, err := objectclient.NewObjectClient(appCtx, cfg)
	if err != nil {
		return nil, err
	}
	a.ObjectClient = objClient
	log.Println("Object client initialized and ready.")

	// a nil provider makes the advisor answer with placeholder text
	var llmProvider core.LLMProvider
	if cfg.AIAPIKey != "" {
		gemini, err := llm.NewGeminiLLM(appCtx, cfg.AIAPIKey, cfg.GenModel)
		if err != nil {
			return nil, fmt.Errorf("couldn't initialize the llm, %w", err)
		}
		a.llm = gemini
		llmProvider = gemini
	} else {
		log.Println("WARN: GEMINI_API_KEY not set, AI suggestions are disabled")
	}

	carLabels, err := vision.LoadLabelTable(cfg.CarLabelsPath)
	if err != nil {
		return nil, err
	}
	carModel, err := vision.NewModelClassifier(cfg.CarModelURL, carLabels, cfg.ModelInputSize)
	if err != nil {
		return nil, fmt.Errorf("car model: %w", err)
	}
	severityModel, err := vision.NewModelClassifier(cfg.SeverityModelURL, vision.SeverityLabels(), cfg.ModelInputSize)
	if err != nil {
		return nil, fmt.Errorf("severity model: %w", err)
	}
	detector, err := vision.NewHTTPDetector(cfg.DetectorURL, cfg.DetectorAPIKey, cfg.DetectorMinConf)
	if err != nil {
		return nil, fmt.Errorf("damage detector: %w", err)
	}

	estimator, err := cost.NewEstimator(cfg.PricingPath)
	if err != nil {
		return nil, err
	}
	warnUnpricedLabels(carLabels, estimator)

	images := services.NewImageService(objClient, bucket)
	pipeline := assessment.NewPipeline(carModel, severityModel, detector, images, cfg.TempDir, cfg.PipelineConcurrency)

	var publisher events.Publisher = events.LogPublisher{}
	if cfg.KafkaBrokers != "" {
		publisher = events.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaTopic)
		log.Printf("Publishing assessment events to kafka topic %s.", cfg.KafkaTopic)
	}
	a.Events = events.NewDispatcher(publisher, eventQueueSize)
	workerCtx, stop := context.WithCancel(context.Background())
	a.stopWorkers = stop
	a.Events.Start(workerCtx, cfg.EventWorkers)

	tokens := auth.NewTokenManager(cfg.JWTSecret, auth.DefaultTokenTTL)
	advisor := services.NewAdvisor(llmProvider)

	a.Server = NewServer(cfg, tokens, Services{
		Users:       services.NewUserService(dbClient, tokens, auth.NewIDTokenVerifier(cfg.GoogleClientID)),
		History:     services.NewHistoryService(dbClient, a.Events),
		Advisor:     advisor,
		Assessments: services.NewAssessmentService(carModel, severityModel, detector, estimator, pipeline, images, cfg.TempDir),
	})

	ok = true
	return a, nil
}

func warnUnpricedLabels(labels *vision.LabelTable, estimator *cost.Estimator) {
	priced := map[string]bool{}
	for _, c := range estimator.CarTypes() {
		priced[c] = true
	}
	for _, l := range labels.All() {
		if !priced[strings.ToLower(l)] {
			log.Printf("WARN: car type %q has no pricing multiplier, cost estimates for it will fail", l)
		}
	}
}

// Close releases every resource NewApp acquired. It is safe on a partially built App.
func (a *App) Close() {
	if a.stopWorkers != nil {
		a.stopWorkers()
	}
	if a.Events != nil {
		if err := a.Events.Close(); err != nil {
			log.Printf("close events: %v", err)
		}
	}
	if a.llm != nil {
		_ = a.llm.Close()
	}
	if c, ok := a.ObjectClient.(io.Closer); ok {
		_ = c.Close()
	}
	if a.DBClient != nil {
		_ = a.DBClient.Close()
	}
}
