package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/promorag/internal/llm"
	"github.com/fyrsmithlabs/promorag/internal/pipeline"
	"github.com/fyrsmithlabs/promorag/internal/query"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func TestRootCommands(t *testing.T) {
	root := newRootCmd()
	var names []string
	for _, c := range root.Commands() {
		names = append(names, c.Name())
	}
	for _, want := range []string{"process", "index", "ask", "classify", "serve", "version"} {
		assert.Contains(t, names, want)
	}
	assert.NotNil(t, root.PersistentFlags().Lookup("config"))
	assert.NotNil(t, root.PersistentFlags().Lookup("env"))
}

func TestVersionCmd(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "Version:    dev")
	assert.Contains(t, out, "Commit:")
}

func TestClassifyCmd(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want query.Type
	}{
		{name: "sla", args: []string{"какой", "срок", "выплаты?"}, want: query.TypeSLA},
		{name: "general", args: []string{"расскажи про акцию"}, want: query.TypeGeneral},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := execute(t, append([]string{"classify", "--env", ""}, tt.args...)...)
			require.NoError(t, err)

			var resp struct {
				Query string     `json:"query"`
				Type  query.Type `json:"type"`
			}
			require.NoError(t, json.Unmarshal([]byte(out), &resp))
			assert.Equal(t, strings.Join(tt.args, " "), resp.Query)
			assert.Equal(t, tt.want, resp.Type)
		})
	}

	t.Run("requires a query", func(t *testing.T) {
		_, err := execute(t, "classify")
		assert.Error(t, err)
	})

	t.Run("rejects invalid config", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.yaml")
		require.NoError(t, os.WriteFile(path, []byte("server:\n  port: 0\n"), 0o600))
		_, err := execute(t, "classify", "--env", "", "--config", path, "sla")
		assert.Error(t, err)
	})
}

type fakeAsker struct {
	questions []string
	histories [][]llm.Turn
	err       error
}

func (f *fakeAsker) Ask(_ context.Context, question string, history ...llm.Turn) (*pipeline.Answer, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.questions = append(f.questions, question)
	f.histories = append(f.histories, append([]llm.Turn(nil), history...))
	return &pipeline.Answer{Text: "ответ на " + question}, nil
}

func TestRunChat(t *testing.T) {
	t.Run("keeps history until exit", func(t *testing.T) {
		r := &fakeAsker{}
		var out bytes.Buffer
		in := strings.NewReader("первый\n\n  второй  \nвыход\nтретий\n")

		require.NoError(t, runChat(context.Background(), r, in, &out))
		assert.Equal(t, []string{"первый", "второй"}, r.questions)
		assert.Empty(t, r.histories[0])
		assert.Equal(t, []llm.Turn{
			{Role: llm.RoleUser, Content: "первый"},
			{Role: llm.RoleAssistant, Content: "ответ на первый"},
		}, r.histories[1])
		assert.Contains(t, out.String(), "ответ на второй")
	})

	t.Run("bounds history", func(t *testing.T) {
		r := &fakeAsker{}
		in := strings.NewReader(strings.Repeat("вопрос\n", 6))
		require.NoError(t, runChat(context.Background(), r, in, &bytes.Buffer{}))
		require.Len(t, r.histories, 6)
		assert.Len(t, r.histories[5], maxChatTurns)
	})

	t.Run("stops on error", func(t *testing.T) {
		r := &fakeAsker{err: pipeline.ErrEmptyQuestion}
		err := runChat(context.Background(), r, strings.NewReader("x\n"), &bytes.Buffer{})
		assert.ErrorIs(t, err, pipeline.ErrEmptyQuestion)
	})
}

type fakeServer struct {
	started  chan struct{}
	stop     chan struct{}
	startErr error
	shutdown bool
}

func (f *fakeServer) Start() error {
	close(f.started)
	if f.startErr != nil {
		return f.startErr
	}
	<-f.stop
	return nil
}

func (f *fakeServer) Shutdown(context.Context) error {
	f.shutdown = true
	close(f.stop)
	return nil
}

func TestServe(t *testing.T) {
	t.Run("shuts down on cancel", func(t *testing.T) {
		srv := &fakeServer{started: make(chan struct{}), stop: make(chan struct{})}
		ctx, cancel := context.WithCancel(context.Background())
		go func() {
			<-srv.started
			cancel()
		}()
		require.NoError(t, serve(ctx, srv, time.Second))
		assert.True(t, srv.shutdown)
	})

	t.Run("returns start error", func(t *testing.T) {
		srv := &fakeServer{started: make(chan struct{}), stop: make(chan struct{}), startErr: errors.New("address in use")}
		err := serve(context.Background(), srv, time.Second)
		assert.EqualError(t, err, "address in use")
		assert.False(t, srv.shutdown)
	})
}
