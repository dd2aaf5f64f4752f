package prompt

import (
	"fmt"
	"strings"
)

const classifierModels = `models = {
    'XGBoost': XGBClassifier(random_state=42, eval_metric='logloss'),
    'Random_Forest': RandomForestClassifier(random_state=42),
    'Decision_Tree': DecisionTreeClassifier(random_state=42),
    'Naive_Bayes': GaussianNB()
}`

const classifierImports = `from sklearn.ensemble import RandomForestClassifier
from sklearn.tree import DecisionTreeClassifier
from sklearn.naive_bayes import GaussianNB
from xgboost import XGBClassifier
from sklearn.metrics import classification_report, accuracy_score, precision_score, recall_score, f1_score`

const regressorModels = `models = {
    'XGBoost': XGBRegressor(random_state=42),
    'Random_Forest': RandomForestRegressor(random_state=42),
    'Decision_Tree': DecisionTreeRegressor(random_state=42),
    'Linear_Regression': LinearRegression()
}`

const regressorImports = `from sklearn.ensemble import RandomForestRegressor
from sklearn.tree import DecisionTreeRegressor
from xgboost import XGBRegressor
from sklearn.linear_model import LinearRegression
from sklearn.metrics import r2_score, mean_squared_error, mean_absolute_error`

// Training renders the model-training prompt. Regression tasks swap in
// regressor variants of the model set; everything else is treated as
// classification.
func Training(ds Dataset) string {
	modelInit, modelImports := classifierModels, classifierImports
	taskType := ds.TaskType
	if taskType == "regression" {
		modelInit, modelImports = regressorModels, regressorImports
	} else {
		taskType = "classification"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "You are a machine learning expert. Create comprehensive model training code for this dataset:\n\n")
	fmt.Fprintf(&b, "## Dataset Information:\n")
	fmt.Fprintf(&b, "- **Target Column**: %s\n", ds.TargetColumn)
	fmt.Fprintf(&b, "- **Task Type**: %s\n", taskType)
	fmt.Fprintf(&b, "- **Dataset Shape**: %d rows x %d columns\n\n", ds.Rows, ds.Columns)

	fmt.Fprintf(&b, `## Requirements:
1. Load cleaned data from 'cleaned_data.csv'
2. Split data: 80%% train, 15%% test, 5%% validation (use stratified sampling for classification)
3. Train all 4 models with proper random seeds
4. Evaluate performance on test and validation sets
5. Save each trained model as a .pkl file
6. Collect all metrics into a dict named 'model_results'
7. Save model_results as 'model_results.json' using json.dump
8. Print progress and results

## Models to Train:
%s

## Expected Code Structure:
import pandas as pd
import numpy as np
%s
from sklearn.model_selection import train_test_split
import pickle
import json

df = pd.read_csv('cleaned_data.csv')
X = df.drop('%s', axis=1)
y = df['%s']

# split, train, evaluate, save models, collect metrics

model_results = {}
with open('model_results.json', 'w') as f:
    json.dump(model_results, f, indent=2)

Generate COMPLETE, EXECUTABLE Python code. Include ALL imports and error handling.
Return ONLY executable Python code without markdown fences.
`, modelInit, modelImports, ds.TargetColumn, ds.TargetColumn)

	return b.String()
}
