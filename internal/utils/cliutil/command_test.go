package cliutil

import (
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateCommand(t *testing.T) {
	var gotArgs []string
	var gotParams []string
	var gotTimeout time.Duration

	cmd := CreateCommand(CommandConfig{
		Use:  "train <file>",
		Args: cobra.ExactArgs(1),
		Flags: map[string]Flag{
			"param":   {Type: FlagTypeStringArray, Shorthand: "p"},
			"timeout": {Type: FlagTypeDuration, DefaultDuration: time.Second},
			"algo":    {Type: FlagTypeString, Required: true},
		},
		RunFunc: func(cmd *cobra.Command, args []string) error {
			gotArgs = args
			gotParams, _ = cmd.Flags().GetStringArray("param")
			gotTimeout, _ = cmd.Flags().GetDuration("timeout")
			return nil
		},
	}, zerolog.Nop())

	cmd.SetArgs([]string{"data.csv", "--algo", "knn", "-p", "k=3", "-p", "weights=uniform,distance"})
	require.NoError(t, cmd.Execute())
	assert.Equal(t, []string{"data.csv"}, gotArgs)
	assert.Equal(t, []string{"k=3", "weights=uniform,distance"}, gotParams)
	assert.Equal(t, time.Second, gotTimeout)
}

func TestCreateCommandRequiredFlag(t *testing.T) {
	cmd := CreateCommand(CommandConfig{
		Use:   "predict",
		Flags: map[string]Flag{"algo": {Type: FlagTypeString, Required: true}},
	}, zerolog.Nop())
	cmd.SetArgs([]string{})
	assert.Error(t, cmd.Execute())
}

func TestParseKeyValues(t *testing.T) {
	got, err := ParseKeyValues([]string{"k=3", " lr = 0.1 ", "k=5", "empty="})
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"k": "5", "lr": "0.1", "empty": ""}, got)

	_, err = ParseKeyValues([]string{"novalue"})
	assert.Error(t, err)
	_, err = ParseKeyValues([]string{"=3"})
	assert.Error(t, err)
}
