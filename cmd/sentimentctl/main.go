package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	sentiment "github.com/gencart/sentiment"
)

type app struct {
	cfg    sentiment.Config
	log    *zap.Logger
	store  *sentiment.ReviewStore
	models *sentiment.ModelStore
	router *sentiment.Router
}

func main() {
	if err := rootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func rootCommand() *cobra.Command {
	var configPath string
	a := &app{}

	root := &cobra.Command{
		Use:           "sentimentctl",
		Short:         "Review sentiment engine CLI",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(configPath)
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			a.close()
		},
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to yaml config file")

	root.AddCommand(
		trainCommand(a),
		analyzeCommand(a),
		batchCommand(a),
		summaryCommand(a),
		trendCommand(a),
		alertsCommand(a),
		overviewCommand(a),
		auditCommand(a),
	)
	return root
}

func (a *app) setup(configPath string) error {
	cfg, err := sentiment.LoadConfig(configPath)
	if err != nil {
		return err
	}
	log, err := zap.NewProduction()
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	store, err := sentiment.NewReviewStore(cfg.Database.Path)
	if err != nil {
		return err
	}
	a.cfg = cfg
	a.log = log
	a.store = store
	a.models = sentiment.NewModelStore(cfg.Models.Dir, cfg.Models.FallbackDirs, log)
	a.router = sentiment.NewRouter(a.models, log)
	return nil
}

func (a *app) close() {
	if a.store != nil {
		_ = a.store.Close()
	}
	if a.log != nil {
		_ = a.log.Sync()
	}
}

func trainCommand(a *app) *cobra.Command {
	var (
		lang    string
		all     bool
		force   bool
		balance string
	)
	cmd := &cobra.Command{
		Use:   "train",
		Short: "Train and persist sentiment models from labeled reviews",
		RunE: func(cmd *cobra.Command, args []string) error {
			trainer := sentiment.NewTrainer(a.store, a.models, a.log)
			opts := sentiment.DefaultTrainOptions(sentiment.Language(lang))
			opts.MinReviews = a.cfg.Training.MinReviews
			opts.TestFraction = a.cfg.Training.TestFraction
			opts.ValidationFraction = a.cfg.Training.ValidationFraction
			opts.Force = force
			if balance != "" {
				opts.Balance = true
				opts.BalanceMethod = balance
			}

			if all {
				results, err := trainer.TrainBothLanguages(cmd.Context(), opts)
				for language, result := range results {
					printTrainResult(cmd, language, result)
				}
				return err
			}
			result, err := trainer.Train(cmd.Context(), opts)
			if result != nil {
				printTrainResult(cmd, opts.Language, result)
			}
			return err
		},
	}
	cmd.Flags().StringVarP(&lang, "language", "l", string(sentiment.English), "language to train (en or vi)")
	cmd.Flags().BoolVar(&all, "all", false, "train every supported language")
	cmd.Flags().BoolVar(&force, "force", false, "train even below the minimum review count")
	cmd.Flags().StringVar(&balance, "balance", "", "class balance strategy (oversample, undersample, class_weights)")
	return cmd
}

func printTrainResult(cmd *cobra.Command, lang sentiment.Language, r *sentiment.TrainResult) {
	if r.Insufficient {
		cmd.Printf("%s: insufficient data (%d labeled, %d required)\n", lang, r.LabeledCount, r.RequiredCount)
		return
	}
	cmd.Printf("%s: trained on %d reviews, held-out accuracy %.3f\n", lang, r.LabeledCount, r.Accuracy)
	if r.Validation != nil {
		cmd.Printf("%s: validation accuracy %.3f precision %.3f recall %.3f f1 %.3f\n",
			lang, r.Validation.Accuracy, r.Validation.Precision, r.Validation.Recall, r.Validation.F1)
	}
}

func analyzeCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "analyze [text]",
		Short: "Classify a single text, routing by detected language",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			service := sentiment.NewService(a.store, a.router, a.log)
			p := service.AnalyzeText(args[0])
			cmd.Printf("language:   %s\n", p.Language)
			cmd.Printf("sentiment:  %s\n", p.Sentiment)
			cmd.Printf("confidence: %.3f\n", p.Confidence)
			cmd.Printf("algorithm:  %s\n", p.Algorithm)
			for _, cls := range sentiment.Classes() {
				cmd.Printf("  %-9s %.3f\n", cls, p.Probabilities[cls])
			}
			return nil
		},
	}
	return cmd
}

func batchCommand(a *app) *cobra.Command {
	var batchSize int
	cmd := &cobra.Command{
		Use:   "batch",
		Short: "Classify every review that has no sentiment annotation",
		RunE: func(cmd *cobra.Command, args []string) error {
			service := sentiment.NewService(a.store, a.router, a.log)
			if batchSize <= 0 {
				batchSize = a.cfg.Analysis.BatchSize
			}
			stats, err := service.AnalyzeAll(cmd.Context(), batchSize)
			if err != nil {
				return err
			}
			cmd.Printf("processed %d reviews (%d positive, %d negative, %d neutral, %d errors)\n",
				stats.Processed, stats.Positive, stats.Negative, stats.Neutral, stats.Errors)
			return nil
		},
	}
	cmd.Flags().IntVar(&batchSize, "batch-size", 0, "reviews per transaction (default from config)")
	return cmd
}

func summaryCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "summary <product-id>",
		Short: "Sentiment distribution for one product",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			productID, err := parseProductID(args[0])
			if err != nil {
				return err
			}
			engine := sentiment.NewEngine(a.store, a.log)
			s, err := engine.Summarize(cmd.Context(), productID)
			if err != nil {
				return err
			}
			printSummary(cmd, s)
			return nil
		},
	}
	return cmd
}

func overviewCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "overview",
		Short: "Sentiment distribution across the whole review corpus",
		RunE: func(cmd *cobra.Command, args []string) error {
			engine := sentiment.NewEngine(a.store, a.log)
			s, err := engine.Overview(cmd.Context())
			if err != nil {
				return err
			}
			printSummary(cmd, s)
			return nil
		},
	}
}

func printSummary(cmd *cobra.Command, s *sentiment.Summary) {
	cmd.Printf("reviews:    %d (%d analyzed, %.0f%% coverage, %s basis)\n",
		s.TotalReviews, s.AnalyzedReviews, 100*s.Coverage, s.Basis)
	cmd.Printf("dominant:   %s\n", s.Dominant)
	cmd.Printf("avg rating: %.2f  avg confidence: %.3f\n", s.AverageRating, s.AverageConfidence)
	for _, cls := range sentiment.Classes() {
		cmd.Printf("  %-9s %4d  %5.1f%%\n", cls, s.Counts[cls], s.Percentages[cls])
	}
}

func trendCommand(a *app) *cobra.Command {
	var (
		days      int
		productID uint
		mode      string
	)
	cmd := &cobra.Command{
		Use:   "trend",
		Short: "Daily sentiment series over the trailing N days",
		RunE: func(cmd *cobra.Command, args []string) error {
			engine := sentiment.NewEngine(a.store, a.log)
			points, err := engine.Trend(cmd.Context(), days, productID, sentiment.TrendMode(mode))
			if err != nil {
				return err
			}
			for _, p := range points {
				cmd.Printf("%s  total=%-4d pos=%-4d neg=%-4d neu=%-4d\n",
					p.Date, p.Total, p.Counts[sentiment.Positive], p.Counts[sentiment.Negative], p.Counts[sentiment.Neutral])
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&days, "days", 30, "trailing window in days")
	cmd.Flags().UintVar(&productID, "product", 0, "restrict to one product (0 = all)")
	cmd.Flags().StringVar(&mode, "mode", string(sentiment.TrendDirect), "bucket mode (direct or effective)")
	return cmd
}

func alertsCommand(a *app) *cobra.Command {
	var threshold float64
	cmd := &cobra.Command{
		Use:   "alerts",
		Short: "Products whose negative share crosses a threshold",
		RunE: func(cmd *cobra.Command, args []string) error {
			engine := sentiment.NewEngine(a.store, a.log)
			report, err := engine.Alerts(cmd.Context(), threshold)
			if err != nil {
				return err
			}
			if report.Fallback {
				cmd.Printf("no product crossed %.0f%%; showing worst %d of %d scanned\n",
					report.Threshold, len(report.Alerts), report.ProductsScanned)
			}
			for _, alert := range report.Alerts {
				cmd.Printf("product %-6d %5.1f%% negative over %d reviews\n",
					alert.ProductID, alert.NegativePercent, alert.TotalReviews)
			}
			return nil
		},
	}
	cmd.Flags().Float64Var(&threshold, "threshold", 40, "negative share threshold in percent")
	return cmd
}

func auditCommand(a *app) *cobra.Command {
	var (
		minTokenLength int
		shortThreshold int
	)
	cmd := &cobra.Command{
		Use:   "audit",
		Short: "Training-data quality report over the review corpus",
		RunE: func(cmd *cobra.Command, args []string) error {
			auditor := sentiment.NewAuditor(a.store, a.log)
			report, err := auditor.Audit(cmd.Context(), minTokenLength, shortThreshold)
			if err != nil {
				return err
			}
			cmd.Printf("reviews:         %d (%d labeled, %d unlabeled)\n",
				report.TotalReviews, report.Labeled, report.Unlabeled)
			cmd.Printf("empty texts:     %.1f%%\n", 100*report.EmptyTextRatio)
			cmd.Printf("duplicates:      %.1f%%\n", 100*report.DuplicateRatio)
			cmd.Printf("short texts:     %.1f%%\n", 100*report.ShortTextRatio)
			cmd.Printf("avg tokens:      %.1f\n", report.AverageTokens)
			cmd.Printf("imbalance ratio: %.2f\n", report.ImbalanceRatio)
			for _, cls := range sentiment.Classes() {
				cmd.Printf("  %-9s %d\n", cls, report.LabelCounts[cls])
			}
			if report.Adequate(a.cfg.Training.MinReviews) {
				cmd.Println("corpus looks adequate for training")
			} else {
				cmd.Println("corpus is NOT adequate for training")
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&minTokenLength, "min-token-length", 0, "shortest token counted (0 = default)")
	cmd.Flags().IntVar(&shortThreshold, "short-threshold", 0, "token count below which a text is short (0 = default)")
	return cmd
}

func parseProductID(arg string) (uint, error) {
	id, err := strconv.ParseUint(arg, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid product id %q", arg)
	}
	return uint(id), nil
}
