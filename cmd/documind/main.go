// Command documind is an interactive shell over the DocuMind client: the
// session lives only for the duration of the process, matching the client's
// no-local-persistence rule.
package main

import (
	"bufio"
	"context"
	"fmt"
	"mime"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"go.uber.org/zap"

	"github.com/devjadaun/documind-go/internal/app"
	"github.com/devjadaun/documind-go/internal/config"
	"github.com/devjadaun/documind-go/internal/pkg/logger"
	"github.com/devjadaun/documind-go/internal/services"
)

func main() {
	cfg := config.LoadConfig()
	log := logger.New(cfg.Environment, cfg.LogFilePath)

	application, err := app.New(cfg, log)
	if err != nil {
		log.Fatal("startup failed", zap.Error(err))
	}
	defer application.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		c := make(chan os.Signal, 1)
		signal.Notify(c, syscall.SIGINT, syscall.SIGTERM)
		<-c
		cancel()
	}()

	application.Start(ctx)
	runShell(ctx, application)
}

const shellHelp = `commands:
  signup <email> <password>   create an account and sign in
  login <email> <password>    sign in
  logout                      sign out and clear local state
  whoami                      show the signed-in user
  documents                   refresh and list documents
  upload <path>               upload a PDF
  search <query>              search across documents
  summarize <query>           summarize relevant passages
  chat <message>              send one chat turn
  transcript                  print the chat transcript
  quit`

func runShell(ctx context.Context, a *app.App) {
	fmt.Println("DocuMind shell. Type 'help' for commands.")
	scanner := bufio.NewScanner(os.Stdin)

	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			return
		}
		if ctx.Err() != nil {
			return
		}

		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}
		cmd, args := fields[0], fields[1:]

		switch cmd {
		case "help":
			fmt.Println(shellHelp)

		case "signup", "login":
			if len(args) != 2 {
				fmt.Printf("usage: %s <email> <password>\n", cmd)
				continue
			}
			var err error
			if cmd == "signup" {
				_, err = a.Provider.SignUp(ctx, args[0], args[1])
			} else {
				_, err = a.Provider.SignIn(ctx, args[0], args[1])
			}
			if err != nil {
				fmt.Println("sign-in failed:", err)
				continue
			}
			if u := a.Coordinator.User(); u != nil {
				fmt.Println("signed in as", u.Email)
			}

		case "logout":
			_ = a.Provider.SignOut(ctx)
			fmt.Println("signed out")

		case "whoami":
			if u := a.Coordinator.User(); u != nil {
				fmt.Printf("%s (%s)\n", u.Email, u.ID)
			} else {
				fmt.Println("not signed in")
			}

		case "documents":
			if err := a.Coordinator.RefreshDocuments(ctx); err != nil {
				fmt.Println("refresh failed:", err)
				continue
			}
			docs := a.Coordinator.Documents()
			if len(docs) == 0 {
				fmt.Println("no documents")
				continue
			}
			for _, d := range docs {
				fmt.Printf("%-12s %-36s %s\n", d.Status, d.ID, d.Title)
			}

		case "upload":
			if len(args) != 1 {
				fmt.Println("usage: upload <path>")
				continue
			}
			runUpload(ctx, a, args[0])

		case "search":
			if len(args) == 0 {
				fmt.Println("usage: search <query>")
				continue
			}
			resp := a.Coordinator.RunSearch(ctx, strings.Join(args, " "))
			if resp == nil {
				fmt.Println("no results (search failed)")
				continue
			}
			fmt.Printf("%d result(s) in %.2fs\n", resp.TotalResults, resp.ExecutionTime)
			for i, r := range resp.Results {
				fmt.Printf("%2d. [%.2f] %s: %s\n", i+1, r.SimilarityScore, r.Document.Title, r.Chunk.Text)
			}

		case "summarize":
			if len(args) == 0 {
				fmt.Println("usage: summarize <query>")
				continue
			}
			resp := a.Coordinator.RunSummarize(ctx, strings.Join(args, " "))
			if resp == nil {
				fmt.Println("no summary (summarize failed)")
				continue
			}
			fmt.Println(resp.Summary)
			fmt.Printf("(%s, %.2fs)\n", resp.ModelInfo.ModelName, resp.ProcessingTime)

		case "chat":
			if len(args) == 0 {
				fmt.Println("usage: chat <message>")
				continue
			}
			var docIDs []string
			for _, d := range a.Coordinator.Documents() {
				docIDs = append(docIDs, d.ID)
			}
			reply := a.Coordinator.SendChat(ctx, strings.Join(args, " "), docIDs)
			fmt.Println("assistant:", reply.Content)

		case "transcript":
			for _, m := range a.Coordinator.Transcript() {
				fmt.Printf("%s: %s\n", m.Role, m.Content)
			}

		case "quit", "exit":
			return

		default:
			fmt.Println("unknown command; type 'help'")
		}
	}
}

func runUpload(ctx context.Context, a *app.App, path string) {
	f, err := os.Open(path)
	if err != nil {
		fmt.Println("open failed:", err)
		return
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		fmt.Println("stat failed:", err)
		return
	}

	contentType := mime.TypeByExtension(filepath.Ext(path))
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	task := services.NewUploadTask(nil)
	task.Begin()

	doc, err := a.Documents.Upload(ctx, services.UploadFile{
		Name:        filepath.Base(path),
		ContentType: contentType,
		Size:        info.Size(),
		Body:        f,
	}, func(percent int) {
		task.SetProgress(percent)
		fmt.Printf("\ruploading... %3d%%", percent)
	})
	if err != nil {
		task.Fail(err.Error())
		fmt.Println("\n" + err.Error())
		return
	}
	task.Succeed("File uploaded successfully!")
	fmt.Printf("\nuploaded %s (%s)\n", doc.Title, doc.ID)
}
