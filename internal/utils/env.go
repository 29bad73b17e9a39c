package utils

import (
  "os"
  "strconv"
  "strings"
  "github.com/aokimori/libretutor-backend/internal/logger"
)

// GetEnv reads a string config value. All runtime configuration comes from
// the environment (JWT_SECRET_KEY, GCS_BUCKET_NAME, REDIS_ADDR, ...); there
// are no config files. Empty values count as unset so a blank line in an env
// file does not silently disable a default.
func GetEnv(key, defaultVal string, log *logger.Logger) string {
  if log != nil {
    log = log.With("env_var", key)
  }
  val, ok := os.LookupEnv(key)
  if !ok || strings.TrimSpace(val) == "" {
    if log != nil {
      log.Debug("Env var unset, using default", "default", defaultVal)
    }
    return defaultVal
  }
  if log != nil {
    log.Debug("Env var set", "value", val)
  }
  return val
}

// GetEnvAsInt reads an integer config value (token TTLs, limits). A value
// that does not parse falls back to the default rather than aborting startup.
func GetEnvAsInt(key string, defaultVal int, log *logger.Logger) int {
  if log != nil {
    log = log.With("env_var", key)
  }
  valStr, ok := os.LookupEnv(key)
  if !ok || strings.TrimSpace(valStr) == "" {
    if log != nil {
      log.Debug("Env var unset, using default", "default", defaultVal)
    }
    return defaultVal
  }
  i, err := strconv.Atoi(strings.TrimSpace(valStr))
  if err != nil {
    if log != nil {
      log.Debug("Env var is not an integer, using default", "raw", valStr, "default", defaultVal, "error", err)
    }
    return defaultVal
  }
  if log != nil {
    log.Debug("Env var set", "value", i)
  }
  return i
}
