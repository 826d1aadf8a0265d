// Copyright (c) 2025 The centralised-logging Authors
//
// This file is part of centralised-logging.
//
// centralised-logging is dual-licensed:
//
// 1. GNU Affero General Public License v3.0 (AGPL-3.0)
//    See LICENSE file or visit https://www.gnu.org/licenses/agpl-3.0.html
//
// 2. Commercial License
//    Contact the centralised-logging maintainers for commercial licensing options.


// Command logrelay-lambda is the AWS Lambda entry point. LOGRELAY_TRIGGER
// selects the event source: "s3" (default) for direct bucket notifications,
// "sqs" for notifications queued through SQS with partial batch responses.
package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/aws/aws-lambda-go/lambda"

	"github.com/jtp-saini-harmit/centralised-logging/pkg/adapters"
	"github.com/jtp-saini-harmit/centralised-logging/pkg/cli"
	"github.com/jtp-saini-harmit/centralised-logging/pkg/config"
)

// TriggerEnv names the variable selecting the event source.
const TriggerEnv = config.EnvPrefix + "_TRIGGER"

func main() {
	logger := adapters.NewDefaultLogger()

	handler, err := newHandler(logger, os.Getenv(TriggerEnv))
	if err != nil {
		logger.Error(context.Background(), "lambda bootstrap failed", adapters.Err(err))
		os.Exit(1)
	}
	lambda.Start(handler)
}

// newHandler assembles the pipeline from the environment and returns the
// handler function for the selected trigger.
func newHandler(logger adapters.Logger, trigger string) (any, error) {
	v, err := config.Load("")
	if err != nil {
		return nil, err
	}

	ctx, err := cli.NewCommandContext(config.FromViper(v), logger)
	if err != nil {
		return nil, err
	}

	h, err := ctx.TriggerHandler()
	if err != nil {
		return nil, err
	}

	switch strings.ToLower(trigger) {
	case "", "s3":
		return h.HandleS3, nil
	case "sqs":
		return h.HandleSQS, nil
	default:
		return nil, fmt.Errorf("unknown %s %q: want s3 or sqs", TriggerEnv, trigger)
	}
}
