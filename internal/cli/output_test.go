package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOutputFormatter_JSONSuccess(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{
		Format: "json",
		Writer: buf,
	}

	err := formatter.Success(map[string]string{"sweep_id": "sweep-1"})
	require.NoError(t, err)

	var resp CLIResponse
	err = json.Unmarshal(buf.Bytes(), &resp)
	require.NoError(t, err)
	assert.Equal(t, "ok", resp.Status)
	assert.NotNil(t, resp.Data)
	assert.Nil(t, resp.Error)
}

func TestOutputFormatter_JSONError(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{
		Format: "json",
		Writer: buf,
	}

	err := formatter.Error(ErrCodeBuild, "sweep build failed", nil)
	require.NoError(t, err)

	var resp CLIResponse
	err = json.Unmarshal(buf.Bytes(), &resp)
	require.NoError(t, err)
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "E006", resp.Error.Code)
	assert.Equal(t, "sweep build failed", resp.Error.Message)
}

func TestOutputFormatter_JSONWarn(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{
		Format: "json",
		Writer: buf,
	}

	err := formatter.Warn("no bundles survived filtering", map[string]int{"excluded": 4})
	require.NoError(t, err)

	var resp CLIResponse
	err = json.Unmarshal(buf.Bytes(), &resp)
	require.NoError(t, err)
	assert.Equal(t, "warn", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrCodeEmptyResult, resp.Error.Code)
	assert.NotNil(t, resp.Data)
}

func TestOutputFormatter_TextOutput(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{
		Format: "text",
		Writer: buf,
	}

	require.NoError(t, formatter.Success("all good"))
	assert.Contains(t, buf.String(), "all good")

	buf.Reset()
	require.NoError(t, formatter.Error(ErrCodePipeline, "analysis failed", nil))
	assert.Contains(t, buf.String(), "Error [E007]: analysis failed")

	buf.Reset()
	require.NoError(t, formatter.Warn("nothing to reduce", nil))
	assert.Contains(t, buf.String(), "Warning: nothing to reduce")
}

func TestOutputFormatter_VerboseLog(t *testing.T) {
	out := &bytes.Buffer{}
	errOut := &bytes.Buffer{}
	formatter := &OutputFormatter{
		Format:    "json",
		Writer:    out,
		ErrWriter: errOut,
		Verbose:   true,
	}

	formatter.VerboseLog("scenario %s ok", "baseline")
	assert.Empty(t, out.String(), "verbose logs must not corrupt JSON output")
	assert.Contains(t, errOut.String(), "scenario baseline ok")

	formatter.Verbose = false
	errOut.Reset()
	formatter.VerboseLog("suppressed")
	assert.Empty(t, errOut.String())
}

func TestExitError(t *testing.T) {
	base := errors.New("disk full")
	wrapped := WrapExitError(ExitFailure, "failed to persist sweep", base)

	assert.Equal(t, "failed to persist sweep: disk full", wrapped.Error())
	assert.ErrorIs(t, wrapped, base)
	assert.Equal(t, ExitFailure, GetExitCode(wrapped))

	plain := NewExitError(ExitCommandError, "unknown scenario")
	assert.Equal(t, "unknown scenario", plain.Error())
	assert.Equal(t, ExitCommandError, GetExitCode(plain))

	// Non-ExitError defaults to the generic failure code.
	assert.Equal(t, ExitFailure, GetExitCode(errors.New("boom")))
}
