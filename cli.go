package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/peternagy/fireview/internal/config"
	"github.com/peternagy/fireview/internal/core"
	"github.com/peternagy/fireview/internal/credential"
	"github.com/peternagy/fireview/internal/debug"
	"github.com/peternagy/fireview/internal/export"
	"github.com/peternagy/fireview/internal/schema"
	"github.com/peternagy/fireview/internal/types"
)

// cli holds the state shared by every command of one process. In the shell
// the same App serves every line.
type cli struct {
	app    *App
	out    io.Writer
	errOut io.Writer
	in     io.Reader

	configDir   string
	configFile  string
	envFile     string
	logLevel    string
	interactive bool

	// appOptions are applied when the App is created; tests use them to
	// swap the store and prompt service.
	appOptions []Option
}

func newRootCmd(c *cli) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "fireview",
		Short:         "fireview is an admin console for Firestore-like document stores",
		Long:          "fireview connects to a project, browses registered collections and edits, imports and summarizes their documents",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return c.open(cmd.Context())
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if !c.interactive {
				c.close(cmd.Context())
			}
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&c.configDir, "config-dir", c.configDir, "Directory for local state (default: user config dir)")
	flags.StringVar(&c.configFile, "config", c.configFile, "Settings file (default: <config-dir>/config.yaml)")
	flags.StringVar(&c.envFile, "env-file", ".env", "Dotenv file with FIREBASE_* credentials")
	flags.StringVar(&c.logLevel, "log-level", c.logLevel, "Override log level: debug, info, warn, error")

	rootCmd.AddCommand(
		c.connectCmd(),
		c.disconnectCmd(),
		c.statusCmd(),
		c.collectionsCmd(),
		c.docsCmd(),
		c.importCmd(),
		c.summarizeCmd(),
		c.secretsCmd(),
		c.shellCmd(),
	)
	return rootCmd
}

// open creates and starts the App once per process.
func (c *cli) open(ctx context.Context) error {
	if c.app != nil {
		return nil
	}
	if ctx == nil {
		ctx = context.Background()
	}

	if err := config.LoadDotEnv(c.envFile); err != nil {
		return fmt.Errorf("failed to load %s: %w", c.envFile, err)
	}

	dir := c.configDir
	if dir == "" {
		dir = config.InitConfigDir()
	}
	settingsPath := c.configFile
	if settingsPath == "" {
		settingsPath = filepath.Join(dir, config.SettingsFileName)
	}
	settings, err := config.LoadSettings(settingsPath)
	if err != nil {
		return err
	}

	level := settings.Logging.Level
	if c.logLevel != "" {
		level = c.logLevel
	}
	logger, err := debug.NewLogger(settings.Logging.Env, level)
	if err != nil {
		return err
	}
	debug.Init(logger)
	debug.LogStorage("Settings loaded", zap.String("path", settingsPath), zap.String("driver", settings.Store.Driver))

	emitter := core.MultiEmitter{
		&core.WriterEmitter{W: c.errOut},
		&core.LogEmitter{Logger: debug.Named("events")},
	}
	opts := append([]Option{WithConfigDir(dir), WithEmitter(emitter)}, c.appOptions...)
	c.app = NewApp(settings, opts...)
	c.app.startup(ctx)
	return nil
}

func (c *cli) close(ctx context.Context) {
	if c.app != nil {
		c.app.shutdown(ctx)
		c.app = nil
	}
}

// useCollection makes name (or the current selection) the selected
// collection and loads its documents.
func (c *cli) useCollection(ctx context.Context, name string) (string, error) {
	if name == "" {
		name = c.app.SelectedCollection()
	}
	if name == "" {
		return "", errors.New("no collection selected: pass a collection or run 'collections select'")
	}
	if !c.app.GetConnectionStatus().Connected {
		return "", &core.NotConnectedError{}
	}
	if c.app.SelectedCollection() == name {
		return name, c.app.RefreshDocuments(ctx)
	}
	if err := c.app.SelectCollection(ctx, name); err != nil {
		var nf *core.CollectionNotFoundError
		if errors.As(err, &nf) {
			return "", fmt.Errorf("%w (register it with 'collections add %s')", err, name)
		}
		return "", err
	}
	return name, nil
}

func optionalArg(args []string) string {
	if len(args) > 0 {
		return args[0]
	}
	return ""
}

// =============================================================================
// Connection commands
// =============================================================================

func (c *cli) connectCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "connect <project-id>",
		Short: "Connect to a project using FIREBASE_* credentials",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.app.Connect(cmd.Context(), args[0])
		},
	}
}

func (c *cli) disconnectCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "disconnect",
		Short: "Close the connection and forget the project",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.app.Disconnect()
		},
	}
}

func (c *cli) statusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the connection status",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			st := c.app.GetConnectionStatus()
			fmt.Fprintf(c.out, "phase:      %s\n", st.Phase)
			if st.ProjectID != "" {
				fmt.Fprintf(c.out, "project:    %s\n", st.ProjectID)
			}
			if st.Error != "" {
				fmt.Fprintf(c.out, "error:      %s\n", st.Error)
			}
			if sel := c.app.SelectedCollection(); sel != "" {
				fmt.Fprintf(c.out, "collection: %s\n", sel)
			}
			return nil
		},
	}
}

// =============================================================================
// Collection commands
// =============================================================================

func (c *cli) collectionsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "collections",
		Aliases: []string{"coll"},
		Short:   "Manage registered collections",
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:     "ls",
			Aliases: []string{"list"},
			Short:   "List registered collections",
			Args:    cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				selected := c.app.SelectedCollection()
				for _, e := range c.app.ListCollections() {
					marker := "  "
					if e.Name == selected {
						marker = "* "
					}
					fmt.Fprintf(c.out, "%s%s\n", marker, e.Name)
				}
				return nil
			},
		},
		&cobra.Command{
			Use:   "add <name>",
			Short: "Register a collection",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				added, err := c.app.AddCollection(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				if !added {
					fmt.Fprintf(c.out, "%q is already registered\n", strings.TrimSpace(args[0]))
				}
				return nil
			},
		},
		&cobra.Command{
			Use:     "rm <name>",
			Aliases: []string{"remove"},
			Short:   "Unregister a collection",
			Args:    cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return c.app.RemoveCollection(cmd.Context(), args[0])
			},
		},
		&cobra.Command{
			Use:   "select [name]",
			Short: "Select a collection; no name clears the selection",
			Args:  cobra.MaximumNArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return c.app.SelectCollection(cmd.Context(), optionalArg(args))
			},
		},
	)
	return cmd
}

// =============================================================================
// Document commands
// =============================================================================

func (c *cli) docsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "docs",
		Aliases: []string{"documents"},
		Short:   "Browse and edit documents",
	}
	cmd.AddCommand(
		c.docsListCmd(),
		c.docsGetCmd(),
		c.docsAddCmd(),
		c.docsUpdateCmd(),
		c.docsDeleteCmd(),
		c.docsExportCmd(),
		c.docsFieldsCmd(),
	)
	return cmd
}

func (c *cli) docsListCmd() *cobra.Command {
	var opts types.FilterOptions
	var asJSON bool
	cmd := &cobra.Command{
		Use:     "list [collection]",
		Aliases: []string{"ls"},
		Short:   "List documents, optionally filtered",
		Args:    cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := c.useCollection(cmd.Context(), optionalArg(args)); err != nil {
				return err
			}
			if msg := c.app.GetFetchError(); msg != "" {
				return errors.New(msg)
			}
			docs := c.app.GetDocuments(opts)
			if asJSON {
				return export.WriteDocuments(c.out, docs, export.Options{Pretty: true})
			}
			return c.printTable(docs)
		},
	}
	cmd.Flags().StringVarP(&opts.Search, "search", "s", "", "Case-insensitive search across all values")
	cmd.Flags().StringVar(&opts.Field, "field", "", "Field to filter on")
	cmd.Flags().StringVar(&opts.Value, "value", "", "Substring the field value must contain")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print documents as a JSON array")
	return cmd
}

// printTable prints one row per document with the inferred columns.
func (c *cli) printTable(docs []types.Document) error {
	cols := schema.Columns(schema.Infer("", docs))
	w := tabwriter.NewWriter(c.out, 0, 4, 2, ' ', 0)
	fmt.Fprintf(w, "ID\t%s\n", strings.Join(cols, "\t"))
	for _, doc := range docs {
		row := make([]string, len(cols))
		for i, col := range cols {
			if v, ok := doc.Data[col]; ok {
				row[i] = truncate(v.Text(), 40)
			}
		}
		fmt.Fprintf(w, "%s\t%s\n", doc.ID, strings.Join(row, "\t"))
	}
	if err := w.Flush(); err != nil {
		return err
	}
	fmt.Fprintf(c.out, "%d document(s)\n", len(docs))
	return nil
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}

func (c *cli) docsGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <collection> <id>",
		Short: "Print one document",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := c.app.GetDocument(cmd.Context(), args[0], args[1])
			if err != nil {
				return err
			}
			return export.WriteDocuments(c.out, []types.Document{*doc}, export.Options{NDJSON: true})
		},
	}
}

func (c *cli) docsAddCmd() *cobra.Command {
	var docID string
	cmd := &cobra.Command{
		Use:   "add <collection> <json>",
		Short: "Create a document; with --id an existing document is replaced",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			newID, err := c.app.AddDocument(cmd.Context(), args[0], args[1], docID)
			if err != nil {
				return err
			}
			fmt.Fprintln(c.out, newID)
			return nil
		},
	}
	cmd.Flags().StringVar(&docID, "id", "", "Document ID (default: generated)")
	return cmd
}

func (c *cli) docsUpdateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "update <collection> <id> <json>",
		Short: "Merge fields into an existing document",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.app.UpdateDocument(cmd.Context(), args[0], args[1], args[2])
		},
	}
}

func (c *cli) docsDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <collection> <id>",
		Short: "Delete a document",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.app.DeleteDocument(cmd.Context(), args[0], args[1])
		},
	}
}

func (c *cli) docsExportCmd() *cobra.Command {
	var opts export.Options
	cmd := &cobra.Command{
		Use:   "export [collection] [file]",
		Short: "Write the documents as importable JSON",
		Args:  cobra.MaximumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			name, err := c.useCollection(cmd.Context(), optionalArg(args))
			if err != nil {
				return err
			}
			filePath := export.DefaultFilename(name)
			if len(args) == 2 {
				filePath = args[1]
			}
			written, count, err := c.app.ExportDocuments(filePath, opts)
			if err != nil {
				return err
			}
			fmt.Fprintf(c.out, "exported %d document(s) to %s\n", count, written)
			return nil
		},
	}
	cmd.Flags().BoolVar(&opts.NDJSON, "ndjson", false, "One document per line")
	cmd.Flags().BoolVar(&opts.Pretty, "pretty", false, "Indent output")
	return cmd
}

func (c *cli) docsFieldsCmd() *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "fields [collection]",
		Short: "Show the fields seen in the documents",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := c.useCollection(cmd.Context(), optionalArg(args)); err != nil {
				return err
			}
			result := c.app.InferSchema()
			if asJSON {
				return schema.WriteJSON(c.out, result)
			}
			w := tabwriter.NewWriter(c.out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "FIELD\tTYPES\tPRESENT")
			for _, f := range result.Fields {
				fmt.Fprintf(w, "%s\t%s\t%.0f%%\n", f.Name, strings.Join(f.Types, " | "), f.Occurrence)
			}
			return w.Flush()
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print as JSON")
	return cmd
}

// =============================================================================
// Import / summary commands
// =============================================================================

func (c *cli) importCmd() *cobra.Command {
	var ndjson bool
	cmd := &cobra.Command{
		Use:   "import <collection> <file.json>",
		Short: "Bulk import a JSON array of objects",
		Long: "Each object becomes a document. A string \"id\" key sets the document ID; other objects get a generated ID.\n" +
			"The file must hold a JSON array unless --ndjson is given, in which case each line is one object.",
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			result, err := c.app.ImportFile(cmd.Context(), args[0], args[1], ndjson)
			if err != nil {
				return err
			}
			fmt.Fprintf(c.out, "imported %d, failed %d\n", result.SuccessCount, result.ErrorCount)
			for _, msg := range result.Errors {
				fmt.Fprintf(c.out, "  %s\n", msg)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&ndjson, "ndjson", false, "read one JSON object per line")
	return cmd
}

func (c *cli) summarizeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "summarize [collection]",
		Short: "Summarize the documents with a language model",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name, err := c.useCollection(cmd.Context(), optionalArg(args))
			if err != nil {
				return err
			}
			text, err := c.app.SummarizeCollection(cmd.Context(), name)
			if err != nil {
				return err
			}
			fmt.Fprintln(c.out, text)
			return nil
		},
	}
}

// =============================================================================
// Secret commands
// =============================================================================

var secretNames = []string{credential.SecretFirebaseAPIKey, credential.SecretOpenAIAPIKey}

func validSecretName(name string) error {
	for _, n := range secretNames {
		if n == name {
			return nil
		}
	}
	return fmt.Errorf("unknown secret %q, expected one of: %s", name, strings.Join(secretNames, ", "))
}

func (c *cli) secretsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "secrets",
		Short: "Store API keys in the OS keyring",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "set <name>",
			Short: "Store a secret read from the terminal",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				if err := validSecretName(args[0]); err != nil {
					return err
				}
				fmt.Fprintf(c.errOut, "Enter %s: ", args[0])
				value := c.readSecret()
				fmt.Fprintln(c.errOut)
				if value == "" {
					return errors.New("no value entered")
				}
				if err := c.app.SetSecret(args[0], value); err != nil {
					return err
				}
				fmt.Fprintf(c.out, "stored %s (%s)\n", args[0], maskSecret(value))
				return nil
			},
		},
		&cobra.Command{
			Use:   "delete <name>",
			Short: "Remove a stored secret",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				if err := validSecretName(args[0]); err != nil {
					return err
				}
				return c.app.DeleteSecret(args[0])
			},
		},
	)
	return cmd
}

//nolint:errcheck // CLI helper, error ignored for UX
func (c *cli) readSecret() string {
	if c.in == nil {
		// Try to read without echo
		if term.IsTerminal(int(os.Stdin.Fd())) {
			secret, err := term.ReadPassword(int(os.Stdin.Fd()))
			if err == nil {
				return strings.TrimSpace(string(secret))
			}
		}
		c.in = os.Stdin
	}
	reader := bufio.NewReader(c.in)
	input, _ := reader.ReadString('\n')
	return strings.TrimSpace(input)
}

func maskSecret(key string) string {
	if len(key) <= 8 {
		return "****"
	}
	return key[:4] + "..." + key[len(key)-4:]
}

// =============================================================================
// Shell
// =============================================================================

func (c *cli) shellCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "shell",
		Short: "Run commands interactively against one session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c.interactive = true
			defer func() {
				c.interactive = false
				c.close(cmd.Context())
			}()

			in := c.in
			if in == nil {
				in = os.Stdin
			}
			scanner := bufio.NewScanner(in)
			scanner.Buffer(make([]byte, 64*1024), 16*1024*1024)
			for {
				fmt.Fprint(c.errOut, "fireview> ")
				if !scanner.Scan() {
					fmt.Fprintln(c.errOut)
					return scanner.Err()
				}
				line := strings.TrimSpace(scanner.Text())
				if line == "" {
					continue
				}
				if line == "exit" || line == "quit" {
					return nil
				}
				words, err := splitArgs(line)
				if err != nil {
					fmt.Fprintf(c.errOut, "error: %v\n", err)
					continue
				}
				if len(words) > 0 && words[0] == "shell" {
					continue
				}
				sub := newRootCmd(c)
				sub.SetArgs(words)
				sub.SetOut(c.out)
				sub.SetErr(c.errOut)
				if err := sub.ExecuteContext(cmd.Context()); err != nil {
					fmt.Fprintf(c.errOut, "error: %v\n", err)
				}
			}
		},
	}
}

// splitArgs splits a shell line into words. Single and double quotes group
// words; a backslash escapes the next character outside single quotes.
func splitArgs(line string) ([]string, error) {
	var words []string
	var cur strings.Builder
	inWord := false
	var quote rune
	escaped := false

	for _, r := range line {
		switch {
		case escaped:
			cur.WriteRune(r)
			escaped = false
		case r == '\\' && quote != '\'':
			escaped = true
			inWord = true
		case quote != 0:
			if r == quote {
				quote = 0
			} else {
				cur.WriteRune(r)
			}
		case r == '"' || r == '\'':
			quote = r
			inWord = true
		case r == ' ' || r == '\t':
			if inWord {
				words = append(words, cur.String())
				cur.Reset()
				inWord = false
			}
		default:
			cur.WriteRune(r)
			inWord = true
		}
	}
	if quote != 0 {
		return nil, fmt.Errorf("unterminated %c quote", quote)
	}
	if escaped {
		return nil, errors.New("trailing backslash")
	}
	if inWord {
		words = append(words, cur.String())
	}
	return words, nil
}
