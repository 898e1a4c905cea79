package main

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"auto_digest_publisher/config"
	"auto_digest_publisher/generator"
	"auto_digest_publisher/pipeline"
)

func TestBuildLLM(t *testing.T) {
	llm, err := buildLLM(config.Config{LLM: &config.LLMConfig{Provider: "mock"}})
	require.NoError(t, err)
	assert.IsType(t, generator.MockLLM{}, llm)

	llm, err = buildLLM(config.Config{LLM: &config.LLMConfig{Provider: "openai", Model: "gpt-4o", APIKey: "sk-test"}})
	require.NoError(t, err)
	assert.IsType(t, &generator.OpenAILLM{}, llm)

	_, err = buildLLM(config.Config{LLM: &config.LLMConfig{Provider: "deepseek", Model: "deepseek-chat", APIKey: "k"}})
	assert.ErrorContains(t, err, "base_url")

	_, err = buildLLM(config.Config{LLM: &config.LLMConfig{Provider: "openai", Model: "gpt-4o"}})
	assert.Error(t, err)

	_, err = buildLLM(config.Config{})
	assert.Error(t, err)
}

func TestFailureCarriesStoredIssueID(t *testing.T) {
	err := &pipeline.StageError{Stage: pipeline.StagePersist, IssueID: "iss-7", Err: errors.New("disk full")}
	out := failure(err, pipeline.IssueIDOf(err))
	assert.Equal(t, false, out["success"])
	assert.Equal(t, "iss-7", out["issueId"])
	assert.Contains(t, out["error"], "disk full")

	out = failure(errors.New("no config"), "")
	assert.NotContains(t, out, "issueId")
}
