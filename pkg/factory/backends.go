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

package factory

import (
	"github.com/jtp-saini-harmit/centralised-logging/pkg/memory"
	"github.com/jtp-saini-harmit/centralised-logging/pkg/minio"
	"github.com/jtp-saini-harmit/centralised-logging/pkg/s3"
)

func init() {
	RegisterStore("s3", configured(s3.New))
	RegisterStore("minio", configured(minio.New))
	RegisterStore("memory", configured(memory.New))
}
