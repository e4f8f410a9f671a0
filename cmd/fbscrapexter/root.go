// cmd/fbscrapexter/root.go
package main

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/valpere/FBScrapexter/internal/config"
	"github.com/valpere/FBScrapexter/internal/extract"
	"github.com/valpere/FBScrapexter/pkg/api"
)

// rootFlags holds the flags shared by every scraping command. Flags left
// unset keep the value from the configuration file.
type rootFlags struct {
	configFile string
	cookies    string
	proxy      string
	timeout    time.Duration
	verbose    int
	format     string
	filename   string
	pages      int
	noscript   bool

	noExtra      bool
	comments     string
	reactors     string
	reactions    string
	daysLimit    int
	matching     string
	notMatching  string
	keys         []string
	resumeFile   string
	dumpLocation string
	keepSource   bool
}

func newRootCommand() (*cobra.Command, *rootFlags) {
	flags := &rootFlags{}
	root := &cobra.Command{
		Use:           "fbscrapexter",
		Short:         "Scrape posts, profiles, pages and groups from the Facebook mobile site",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&flags.configFile, "config", "", "YAML configuration file")
	pf.StringVarP(&flags.cookies, "cookies", "c", "", "cookies file (Netscape cookies.txt or JSON)")
	pf.StringVar(&flags.proxy, "proxy", "", "proxy URL")
	pf.DurationVar(&flags.timeout, "timeout", 0, "request timeout")
	pf.CountVarP(&flags.verbose, "verbose", "v", "verbose output (repeat for debug logs)")
	pf.StringVarP(&flags.format, "format", "f", "", "output format: "+strings.Join(config.OutputFormats, ", "))
	pf.StringVarP(&flags.filename, "filename", "o", "", `output file, "-" for stdout`)
	pf.IntVarP(&flags.pages, "pages", "p", 0, "number of listing pages to read, -1 for all")
	pf.BoolVar(&flags.noscript, "noscript", false, "request the markup served without JavaScript")

	pf.BoolVar(&flags.noExtra, "no-extra-requests", false, "never fetch full post or photo pages")
	pf.StringVar(&flags.comments, "comments", "", "comments: false, true, lazy or a maximum count")
	pf.StringVar(&flags.reactors, "reactors", "", "reactors: false, true, lazy or a maximum count")
	pf.StringVar(&flags.reactions, "reactions", "", "reaction counts: false or true")
	pf.IntVar(&flags.daysLimit, "days-limit", 0, "stop at the first post older than this many days")
	pf.StringVar(&flags.matching, "matching", "", "keep posts whose text matches this pattern")
	pf.StringVar(&flags.notMatching, "not-matching", "", "drop posts whose text matches this pattern")
	pf.StringSliceVar(&flags.keys, "keys", nil, "only keep these fields")
	pf.StringVar(&flags.resumeFile, "resume-file", "", "store the current page URL here and resume from it")
	pf.StringVar(&flags.dumpLocation, "dump-location", "", "directory receiving the markup of every post")
	pf.BoolVar(&flags.keepSource, "keep-source", false, "keep the post markup in the records")

	root.AddCommand(
		listingCommand(flags, "posts <account>", "Scrape the posts of an account or page", listPosts),
		listingCommand(flags, "group <id>", "Scrape the posts of a group", listGroupPosts),
		listingCommand(flags, "hashtag <tag>", "Scrape the posts of a hashtag", listHashtag),
		listingCommand(flags, "search <word>", "Scrape the posts matching a search word", listSearch),
		listingCommand(flags, "photos <account>", "Scrape the photos of an account", listPhotos),
		urlsCommand(flags),
		profileCommand(flags),
		pageInfoCommand(flags),
		groupInfoCommand(flags),
		friendsCommand(flags),
		shopCommand(flags),
		validateCommand(flags),
		templateCommand(),
		versionCommand(),
	)
	return root, flags
}

// loadConfig reads the configuration file, when given, and applies the
// flags the user set on top of it.
func (f *rootFlags) loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.Default()
	if f.configFile != "" {
		loaded, err := config.LoadFromFile(f.configFile)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	changed := cmd.Flags().Changed
	if changed("cookies") {
		cfg.Session.CookiesFile = f.cookies
	}
	if changed("proxy") {
		cfg.Session.Proxy = f.proxy
	}
	if changed("timeout") {
		cfg.Session.Timeout = f.timeout
	}
	if changed("noscript") {
		cfg.Session.Noscript = f.noscript
	}
	if changed("format") {
		cfg.Output.Format = f.format
	}
	if changed("filename") {
		cfg.Output.File = f.filename
	}
	if changed("pages") {
		cfg.Scrape.Pages = f.pages
	}
	if changed("no-extra-requests") {
		extra := !f.noExtra
		cfg.Scrape.ExtraRequests = &extra
	}
	for name, target := range map[string]*extract.Mode{
		"comments":  &cfg.Scrape.Comments,
		"reactors":  &cfg.Scrape.Reactors,
		"reactions": &cfg.Scrape.Reactions,
	} {
		if !changed(name) {
			continue
		}
		value, _ := cmd.Flags().GetString(name)
		mode, err := extract.ParseMode(value)
		if err != nil {
			return nil, fmt.Errorf("invalid --%s: %w", name, err)
		}
		*target = mode
	}
	if changed("days-limit") {
		cfg.Scrape.DaysLimit = f.daysLimit
	}
	if changed("matching") {
		cfg.Scrape.Matching = f.matching
	}
	if changed("not-matching") {
		cfg.Scrape.NotMatching = f.notMatching
	}
	if changed("keys") {
		cfg.Scrape.Keys = f.keys
	}
	if changed("resume-file") {
		cfg.Scrape.ResumeFile = f.resumeFile
	}
	if changed("dump-location") {
		cfg.Scrape.DumpLocation = f.dumpLocation
	}
	if changed("keep-source") {
		cfg.Scrape.KeepSource = f.keepSource
	}
	if f.verbose > 0 {
		cfg.Logging.Level = "debug"
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// newClient builds the scraping client and, when enabled, serves its
// metrics until the command ends.
func (f *rootFlags) newClient(cmd *cobra.Command) (*api.ScraperClient, error) {
	cfg, err := f.loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	client, err := api.NewScraperClient(cfg)
	if err != nil {
		return nil, err
	}
	if cfg.Session.CookiesFile != "" || len(cfg.Session.Cookies) > 0 {
		if err := client.CheckCookies(); err != nil {
			return nil, err
		}
	}
	if cfg.Metrics.Enabled {
		go func() {
			if err := client.Metrics().StartMetricsServer(cmd.Context(), cfg.Metrics.Listen, "/metrics"); err != nil {
				client.Logger().Warnf("Metrics server stopped: %v", err)
			}
		}()
	}
	return client, nil
}

func versionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			printVersion(cmd.OutOrStdout())
		},
	}
}

func printVersion(w io.Writer) {
	fmt.Fprintf(w, "FBScrapexter %s\n", version)
	fmt.Fprintf(w, "Build time: %s\n", buildTime)
	fmt.Fprintf(w, "Git commit: %s\n", gitCommit)
}
