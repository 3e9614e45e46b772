package allocator

import (
	"context"
	"fmt"
	"time"

	"voicepool/internal/features/credential"

	"github.com/d5/tengo/v2"
	"github.com/d5/tengo/v2/stdlib"
)

const scriptTimeout = 500 * time.Millisecond

// evalSelectionScript runs the operator-defined eligibility script against
// one candidate. The script sees `credential` as a map and must assign a
// boolean to `eligible`.
func evalSelectionScript(ctx context.Context, src string, cand *credential.Credential) (bool, error) {
	script := tengo.NewScript([]byte(src))
	script.SetImports(stdlib.GetModuleMap("math", "text"))

	err := script.Add("credential", map[string]interface{}{
		"credential_id":          cand.CredentialID,
		"label":                  cand.Label,
		"health_status":          string(cand.HealthStatus),
		"max_resource_threshold": cand.MaxResourceThreshold,
		"assigned_agent_count":   cand.AssignedAgentCount,
		"assigned_user_count":    cand.AssignedUserCount,
	})
	if err != nil {
		return false, err
	}
	if err := script.Add("eligible", true); err != nil {
		return false, err
	}

	runCtx, cancel := context.WithTimeout(ctx, scriptTimeout)
	defer cancel()

	compiled, err := script.RunContext(runCtx)
	if err != nil {
		return false, fmt.Errorf("selection script: %w", err)
	}

	return compiled.Get("eligible").Bool(), nil
}
