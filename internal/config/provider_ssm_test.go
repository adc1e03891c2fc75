package config

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	ssmtypes "github.com/aws/aws-sdk-go-v2/service/ssm/types"
)

type mockSSM struct {
	values  map[string]string
	err     error
	batches [][]string
}

func (m *mockSSM) GetParameters(_ context.Context, in *ssm.GetParametersInput, _ ...func(*ssm.Options)) (*ssm.GetParametersOutput, error) {
	m.batches = append(m.batches, in.Names)
	if m.err != nil {
		return nil, m.err
	}
	out := &ssm.GetParametersOutput{}
	for _, name := range in.Names {
		if v, ok := m.values[name]; ok {
			out.Parameters = append(out.Parameters, ssmtypes.Parameter{Name: aws.String(name), Value: aws.String(v)})
		} else {
			out.InvalidParameters = append(out.InvalidParameters, name)
		}
	}
	return out, nil
}

func TestSSMProvider_Batches(t *testing.T) {
	m := &mockSSM{values: map[string]string{}}
	keys := make([]string, 23)
	for i := range keys {
		keys[i] = fmt.Sprintf("/dev/sunpump/p%d", i)
		m.values[keys[i]] = fmt.Sprintf("v%d", i)
	}
	p := &SSMProvider{region: "ap-south-1", client: m}

	got, err := p.GetParametersBatch(context.Background(), keys)
	if err != nil {
		t.Fatalf("GetParametersBatch: %v", err)
	}
	if len(got) != 23 {
		t.Errorf("resolved %d params, want 23", len(got))
	}
	if len(m.batches) != 3 || len(m.batches[2]) != 3 {
		t.Errorf("batches = %d, want 3 with a final batch of 3", len(m.batches))
	}
}

func TestSSMProvider_InvalidParameter(t *testing.T) {
	p := &SSMProvider{client: &mockSSM{values: map[string]string{}}}

	_, err := p.GetParametersBatch(context.Background(), []string{"/missing"})
	if err == nil || !strings.Contains(err.Error(), "/missing") {
		t.Fatalf("expected not-found error naming the path, got %v", err)
	}
}

func TestSSMProvider_ClientError(t *testing.T) {
	boom := errors.New("access denied")
	p := &SSMProvider{client: &mockSSM{err: boom}}

	_, err := p.GetParametersBatch(context.Background(), []string{"/a"})
	if !errors.Is(err, boom) {
		t.Fatalf("expected wrapped client error, got %v", err)
	}
}

func TestSSMProvider_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	m := &mockSSM{}
	p := &SSMProvider{client: m}

	if _, err := p.GetParametersBatch(ctx, []string{"/a"}); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if len(m.batches) != 0 {
		t.Error("no call should be made after cancellation")
	}
}

func TestSSMProvider_EmptyKeys(t *testing.T) {
	got, err := NewSSMProvider("ap-south-1", "").GetParametersBatch(context.Background(), nil)
	if err != nil || got == nil || len(got) != 0 {
		t.Fatalf("got %v, %v; want empty map", got, err)
	}
}
