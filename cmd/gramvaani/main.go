package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/lazypandaa/gramvaani-client/adapters/audio"
	"github.com/lazypandaa/gramvaani-client/adapters/backend"
	"github.com/lazypandaa/gramvaani-client/adapters/storage"
	"github.com/lazypandaa/gramvaani-client/domain/entities"
	"github.com/lazypandaa/gramvaani-client/domain/repositories"
	"github.com/lazypandaa/gramvaani-client/usecase"
)

const defaultLanguage = "hi"

func main() {
	// Load environment variables from .env file if present
	if err := godotenv.Load(); err != nil {
		// .env file is optional
	}

	logger, _ := zap.NewProduction()
	defer logger.Sync()

	app, err := buildApp(logger)
	if err != nil {
		fmt.Fprintln(os.Stderr, "startup failed:", err)
		os.Exit(1)
	}

	ctx := context.Background()
	if user, err := app.session.Validate(ctx); err == nil {
		fmt.Printf("Welcome back, %s\n", user.Email)
	}

	app.repl(ctx)
}

type lazyTokenSource struct {
	session *usecase.SessionService
}

func (l *lazyTokenSource) Token() string {
	if l.session == nil {
		return ""
	}
	return l.session.Token()
}

type app struct {
	session   *usecase.SessionService
	assistant *usecase.AssistantService
	language  string
	backend   repositories.Backend
}

func buildApp(logger *zap.Logger) (*app, error) {
	store, err := storage.NewFileTokenStore("", logger)
	if err != nil {
		return nil, err
	}

	// The client reads the token through the session service, which itself
	// needs the client. The lazy source breaks the construction cycle.
	tokens := &lazyTokenSource{}
	client := backend.NewClient(backend.ConfigFromEnv(), tokens, logger)
	session := usecase.NewSessionService(client, store, logger)
	tokens.session = session

	captureCfg := repositories.AudioConfig{SampleRate: 16000, Channels: 1}
	capture := usecase.NewCaptureService(audio.NewMalgoCapture(logger), captureCfg, logger)

	output, err := audio.NewOtoOutput(captureCfg.SampleRate, captureCfg.Channels, logger)
	if err != nil {
		return nil, err
	}
	playback := usecase.NewPlaybackController(output, logger)

	return &app{
		session:   session,
		assistant: usecase.NewAssistantService(session, client, capture, playback, logger),
		language:  defaultLanguage,
		backend:   client,
	}, nil
}

func (a *app) repl(ctx context.Context) {
	fmt.Println("Gram Vaani assistant. Type 'help' for commands.")
	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			return
		}
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}
		cmd, args := fields[0], fields[1:]
		switch cmd {
		case "help":
			printHelp()
		case "login":
			a.login(ctx, scanner)
		case "signup":
			a.signup(ctx, scanner)
		case "logout":
			if err := a.session.Logout(); err != nil {
				fmt.Println("error:", err)
			}
		case "record":
			if err := a.assistant.StartRecording(ctx); err != nil {
				fmt.Println("error:", err)
			} else {
				fmt.Println("Recording... type 'stop' to submit.")
			}
		case "stop":
			a.show(a.assistant.StopAndAsk(ctx, a.language))
		case "ask":
			a.show(a.assistant.AskText(ctx, strings.Join(args, " "), a.language))
		case "weather":
			a.show(a.assistant.Weather(ctx, strings.Join(args, " "), a.language))
		case "crop":
			crop, market := "", ""
			if len(args) > 0 {
				crop = args[0]
			}
			if len(args) > 1 {
				market = args[1]
			}
			a.show(a.assistant.CropPrices(ctx, crop, market, a.language))
		case "scheme":
			a.show(a.assistant.GovSchemes(ctx, strings.Join(args, " "), a.language))
		case "replay":
			if err := a.assistant.Playback().Play(ctx); err != nil {
				fmt.Println("error:", err)
			}
		case "pause":
			if err := a.assistant.Playback().Pause(); err != nil {
				fmt.Println("error:", err)
			}
		case "history":
			a.history(ctx)
		case "profile":
			a.profile(ctx, args)
		case "locate":
			a.locate(ctx, args)
		case "lang":
			if len(args) > 0 {
				a.language = args[0]
			}
			fmt.Println("language:", a.language)
		case "exit", "quit":
			return
		default:
			fmt.Println("unknown command, type 'help'")
		}
	}
}

func (a *app) show(resp *entities.QueryResponse, err error) {
	if err != nil {
		snapshot := a.assistant.Snapshot()
		if snapshot.ErrorMessage != "" {
			fmt.Println(snapshot.ErrorMessage)
		} else {
			fmt.Println("error:", err)
		}
		return
	}
	if resp == nil {
		return
	}
	if resp.Transcript != "" {
		fmt.Println("You:", resp.Transcript)
	}
	fmt.Println("Assistant:", resp.AnswerText)
}

func (a *app) login(ctx context.Context, scanner *bufio.Scanner) {
	email := prompt(scanner, "email: ")
	password := prompt(scanner, "password: ")
	user, err := a.session.Login(ctx, entities.Credentials{Email: email, Password: password})
	if err != nil {
		fmt.Println("login failed:", err)
		return
	}
	if user.Language != "" {
		a.language = user.Language
	}
	fmt.Printf("Logged in as %s\n", user.Email)
}

func (a *app) signup(ctx context.Context, scanner *bufio.Scanner) {
	profile := entities.SignupProfile{
		Email:    prompt(scanner, "email: "),
		Password: prompt(scanner, "password: "),
		Language: prompt(scanner, "language: "),
		Location: prompt(scanner, "location: "),
	}
	user, err := a.session.Signup(ctx, profile)
	if err != nil {
		fmt.Println("signup failed:", err)
		return
	}
	if user.Language != "" {
		a.language = user.Language
	}
	fmt.Printf("Registered %s\n", user.Email)
}

func (a *app) history(ctx context.Context) {
	records, err := a.session.QueryHistory(ctx)
	if err != nil {
		fmt.Println("error:", err)
		return
	}
	for _, r := range records {
		fmt.Printf("[%s] %s: %s -> %s\n", r.Timestamp.Format("2006-01-02 15:04"), r.Type, r.Query, r.Response)
	}
	if len(records) == 0 {
		fmt.Println("no queries yet")
	}
}

func (a *app) profile(ctx context.Context, args []string) {
	if len(args) < 2 {
		if user := a.session.CurrentUser(); user != nil {
			fmt.Printf("email=%s language=%s location=%s\n", user.Email, user.Language, user.Location)
		} else {
			fmt.Println("not logged in")
		}
		return
	}
	user, err := a.session.UpdateProfile(ctx, entities.User{Language: args[0], Location: strings.Join(args[1:], " ")})
	if err != nil {
		fmt.Println("error:", err)
		return
	}
	a.language = user.Language
	fmt.Println("profile updated")
}

func (a *app) locate(ctx context.Context, args []string) {
	if len(args) == 2 {
		latitude, err1 := strconv.ParseFloat(args[0], 64)
		longitude, err2 := strconv.ParseFloat(args[1], 64)
		if err1 != nil || err2 != nil {
			fmt.Println("usage: locate [lat lon]")
			return
		}
		address, err := a.backend.ReverseGeocode(ctx, latitude, longitude)
		if err != nil {
			fmt.Println("error:", err)
			return
		}
		fmt.Println(address)
		return
	}
	location, err := a.backend.Location(ctx)
	if err != nil {
		fmt.Println("error:", err)
		return
	}
	fmt.Println(location)
}

func prompt(scanner *bufio.Scanner, label string) string {
	fmt.Print(label)
	if !scanner.Scan() {
		return ""
	}
	return strings.TrimSpace(scanner.Text())
}

func printHelp() {
	fmt.Println(`commands:
  login / signup / logout      manage the session
  record / stop                voice query
  ask <text>                   text query
  weather <city>               weather lookup
  crop <crop> [market]         market price lookup
  scheme <topic>               government scheme lookup
  replay / pause               answer playback
  history                      past queries
  profile [language location]  show or update profile
  locate [lat lon]             location or reverse geocode
  lang [code]                  show or set query language
  exit`)
}
